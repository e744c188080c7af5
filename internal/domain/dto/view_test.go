package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theatro/theatro/internal/domain/entity"
)

func TestNewApplicationStats(t *testing.T) {
	views := []ApplicationView{
		{Status: entity.StatusPending, Availability: entity.Available},
		{Status: entity.StatusAccepted, Availability: entity.Available},
		{Status: entity.StatusRefused, Availability: entity.Unavailable},
		{Status: entity.StatusPending},
	}

	stats := NewApplicationStats(views)

	assert.Equal(t, ApplicationStats{Total: 4, Pending: 2, Accepted: 1, Refused: 1, Available: 2, Unavailable: 1}, stats)
}

func TestGroupByRole(t *testing.T) {
	views := []ApplicationView{
		{ID: "1", RoleID: "actor", RoleName: "Actor"},
		{ID: "2", RoleID: "tech", RoleName: "Tech"},
		{ID: "3", RoleID: "actor", RoleName: "Actor"},
	}

	groups := GroupByRole(views)

	require.Len(t, groups, 2)
	assert.Equal(t, "Actor", groups[0].RoleName)
	assert.Len(t, groups[0].Applications, 2)
	assert.Equal(t, "Tech", groups[1].RoleName)
}

func TestNotificationStats(t *testing.T) {
	var stats NotificationStats
	stats.Record(true)
	stats.Record(false)
	stats = stats.Add(NotificationStats{Successful: 1, Total: 1})

	assert.Equal(t, NotificationStats{Successful: 2, Failed: 1, Total: 3}, stats)
}
