package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/theatro/theatro/internal/domain/dto"
	"github.com/theatro/theatro/internal/domain/entity"
	"github.com/theatro/theatro/pkg/logger/types"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type notificationSink interface {
	Send(ctx context.Context, recipient string, kind entity.NotificationKind, data entity.NotificationData) entity.NotificationResult
}

type notificationStatsStorage interface {
	Record(ctx context.Context, kind entity.NotificationKind, success bool) error
}

// Recipient is one addressee of a broadcast with its own template data.
type Recipient struct {
	Mail string
	Data entity.NotificationData
}

type NotifyOptions struct {
	Timeout       time.Duration // per send
	Concurrency   int
	RatePerSecond float64 // 0 disables rate limiting
	Burst         int
}

const statsTimeout = 2 * time.Second

// NotifyService delivers notifications on a best-effort basis: a failed send
// is logged and counted, never returned to the caller.
type NotifyService struct {
	sink    notificationSink
	stats   notificationStatsStorage
	limiter *rate.Limiter

	timeout     time.Duration
	concurrency int

	logger *types.Logger
}

func NewNotifyService(logger *types.Logger, sink notificationSink, stats notificationStatsStorage, opts NotifyOptions) *NotifyService {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &NotifyService{
		sink:        sink,
		stats:       stats,
		limiter:     limiter,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		logger:      logger,
	}
}

// Notify sends a single notification and reports whether it was delivered.
// Cancellation of ctx does not abort the send, only the per-send timeout does.
func (s *NotifyService) Notify(ctx context.Context, recipient string, kind entity.NotificationKind, data entity.NotificationData) bool {
	ctx = context.WithoutCancel(ctx)

	result := s.send(ctx, recipient, kind, data)
	if !result.Success {
		s.logger.Warnf("Notification not delivered (kind=%s, to=%s): %v", kind, recipient, result.Err)
	}
	s.record(ctx, kind, result.Success)
	return result.Success
}

func (s *NotifyService) send(ctx context.Context, recipient string, kind entity.NotificationKind, data entity.NotificationData) entity.NotificationResult {
	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.limiter != nil {
		if err := s.limiter.Wait(sendCtx); err != nil {
			return entity.NotificationResult{Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	done := make(chan entity.NotificationResult, 1)
	go func() {
		done <- s.sink.Send(sendCtx, recipient, kind, data)
	}()

	select {
	case result := <-done:
		if !result.Success && result.Err == nil {
			result.Err = fmt.Errorf("%s notification to %s failed", kind, recipient)
		}
		return result
	case <-sendCtx.Done():
		return entity.NotificationResult{Err: fmt.Errorf("%s notification to %s: %w", kind, recipient, sendCtx.Err())}
	}
}

func (s *NotifyService) record(ctx context.Context, kind entity.NotificationKind, success bool) {
	if s.stats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()
	if err := s.stats.Record(ctx, kind, success); err != nil {
		s.logger.Warnf("failed to record notification stats (kind=%s): %v", kind, err)
	}
}

// Dispatch sends kind to every recipient concurrently and waits for all sends
// to settle. The returned stats always satisfy Successful+Failed == Total.
func (s *NotifyService) Dispatch(ctx context.Context, kind entity.NotificationKind, recipients []Recipient) dto.NotificationStats {
	var (
		mu    sync.Mutex
		stats dto.NotificationStats
	)
	if len(recipients) == 0 {
		return stats
	}

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, recipient := range recipients {
		g.Go(func() error {
			ok := s.Notify(ctx, recipient.Mail, kind, recipient.Data)
			mu.Lock()
			stats.Record(ok)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Infof("Notifications sent (kind=%s): %d successful, %d failed out of %d", kind, stats.Successful, stats.Failed, stats.Total)
	return stats
}
