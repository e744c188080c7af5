package postgres

import "github.com/theatro/theatro/internal/domain/entity"

// Migrations is a list of all gorm migrations for the database.
var Migrations = []interface{}{
	&entity.Member{},
	&entity.Role{},
	&entity.Event{},
	&entity.Application{},
}
