package service

import (
	"errors"
	"fmt"
	"slices"

	"github.com/theatro/theatro/internal/domain/common/errorz"
)

// notFound turns the storage ErrNoRecord signal into the domain error target.
func notFound(err, target error, id string) error {
	if errors.Is(err, errorz.ErrNoRecord) {
		return fmt.Errorf("%w: %s", target, id)
	}
	return err
}

// uniqueNonEmpty drops empty strings and duplicates, keeping first-seen order.
func uniqueNonEmpty(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || slices.Contains(result, v) {
			continue
		}
		result = append(result, v)
	}
	return result
}
