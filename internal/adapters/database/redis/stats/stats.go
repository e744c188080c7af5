package stats

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/theatro/theatro/internal/domain/dto"
	"github.com/theatro/theatro/internal/domain/entity"
)

const (
	fieldSuccessful = "successful"
	fieldFailed     = "failed"
)

// Storage keeps aggregate notification counters: a cumulative hash keyed by
// "<kind>:<outcome>" plus daily buckets that expire after ttl.
type Storage struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Storage)

func WithPrefix(prefix string) Option {
	return func(s *Storage) { s.prefix = strings.Trim(prefix, ":") }
}

func WithTTL(d time.Duration) Option {
	return func(s *Storage) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func NewStorage(client *redis.Client, opts ...Option) *Storage {
	s := &Storage{
		redis:  client,
		prefix: "notifications:stats",
		ttl:    30 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) Record(ctx context.Context, kind entity.NotificationKind, success bool) error {
	if s == nil || s.redis == nil {
		return nil
	}

	outcome := fieldFailed
	if success {
		outcome = fieldSuccessful
	}
	field := fmt.Sprintf("%s:%s", kind, outcome)
	dayKey := fmt.Sprintf("%s:day:%s", s.prefix, time.Now().UTC().Format("20060102"))

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)
	pipe.HIncrBy(ctx, dayKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, dayKey, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Totals returns the cumulative counters per notification kind, sorted by kind.
func (s *Storage) Totals(ctx context.Context) ([]dto.KindStats, error) {
	values, err := s.redis.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return nil, err
	}

	byKind := make(map[string]*dto.KindStats)
	for field, raw := range values {
		kind, outcome, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		n, errParse := strconv.ParseInt(raw, 10, 64)
		if errParse != nil {
			continue
		}
		ks, found := byKind[kind]
		if !found {
			ks = &dto.KindStats{Kind: kind}
			byKind[kind] = ks
		}
		switch outcome {
		case fieldSuccessful:
			ks.Successful += n
		case fieldFailed:
			ks.Failed += n
		}
	}

	result := make([]dto.KindStats, 0, len(byKind))
	for _, ks := range byKind {
		result = append(result, *ks)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Kind < result[j].Kind })
	return result, nil
}
