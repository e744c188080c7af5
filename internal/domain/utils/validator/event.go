package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/theatro/theatro/internal/domain/common/errorz"
	"github.com/theatro/theatro/internal/domain/dto"
	"github.com/theatro/theatro/internal/domain/entity"
)

func EventName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 2 && n <= 100
}

func EventLocation(location string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(location))
	return n >= 2 && n <= 150
}

func RoleName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= 1 && n <= 50 && strings.TrimSpace(name) == name
}

// Event checks the attributes of a new show or workshop.
func Event(attrs dto.CreateEvent) error {
	switch attrs.Kind {
	case entity.EventKindShow, entity.EventKindWorkshop:
	default:
		return errorz.ErrInvalidEventKind
	}
	if !EventName(attrs.Name) {
		return fmt.Errorf("%w: name must be 2 to 100 characters", errorz.ErrInvalidEvent)
	}
	if !EventLocation(attrs.Location) {
		return fmt.Errorf("%w: location must be 2 to 150 characters", errorz.ErrInvalidEvent)
	}
	if attrs.StartTime.IsZero() || attrs.EndTime.IsZero() {
		return fmt.Errorf("%w: start and end time are required", errorz.ErrInvalidEvent)
	}
	if !attrs.EndTime.After(attrs.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", errorz.ErrInvalidEvent)
	}
	if attrs.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be a positive integer", errorz.ErrInvalidEvent)
	}
	for _, role := range attrs.Roles {
		if !RoleName(role) {
			return fmt.Errorf("%w: invalid role name %q", errorz.ErrInvalidEvent, role)
		}
	}
	return nil
}
