package postgres

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/theatro/theatro/internal/domain/common/errorz"
	"gorm.io/gorm"
)

// invalidTextRepresentation is raised by postgres when a value cannot be cast
// to the column type, a malformed uuid for instance.
const invalidTextRepresentation = "22P02"

// translate maps gorm errors to the storage signals of the errorz package.
// The gorm connection must be opened with TranslateError enabled so that
// unique violations surface as gorm.ErrDuplicatedKey.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errorz.ErrNoRecord
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errorz.ErrUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
		return errorz.ErrNoRecord
	}
	return errorz.Storage(op, err)
}

// validID reports whether id can match a row of a uuid column. Ids that
// cannot are simply unknown.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// validIDs keeps the ids that can match a row.
func validIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	return valid
}
