package aggregates

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/okrbridge-backend/internal/pkg/dbctx"
)

// CASGuard performs version-checked writes on objective and corporate objective rows.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

// versionedRow points at the in-memory copy of a row whose version column guards writes.
// Advance keeps Version and UpdatedAt in step with what was committed.
type versionedRow struct {
	Table     string
	ID        uuid.UUID
	Version   *int
	UpdatedAt *time.Time
}

func (g CASGuard) conn(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.DB(nil), nil
	}
	if g.db != nil {
		return dbc.DB(g.db), nil
	}
	return nil, ValidationError("cas guard has no db or transaction")
}

// UpdateByVersion applies updates only while the row still carries expectedVersion.
// ok=false means another writer got there first.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, id uuid.UUID, expectedVersion int, updates map[string]any) (bool, error) {
	db, err := g.conn(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	switch {
	case table == "" || id == uuid.Nil:
		return false, ValidationError("table and id are required for UpdateByVersion")
	case expectedVersion < 0:
		return false, ValidationError("expectedVersion must be >= 0")
	case len(updates) == 0:
		return false, ValidationError("UpdateByVersion needs at least one column")
	}
	res := db.Table(table).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Advance writes updates plus version+1 and updated_at=now, failing with a conflict when
// the stored version moved. On success the row's in-memory version and timestamp follow.
func (g CASGuard) Advance(dbc dbctx.Context, row versionedRow, now time.Time, updates map[string]any) error {
	if row.Version == nil {
		return ValidationError("versioned row has no version")
	}
	current := *row.Version
	if updates == nil {
		updates = map[string]any{}
	}
	updates["version"] = current + 1
	updates["updated_at"] = now

	ok, err := g.UpdateByVersion(dbc, row.Table, row.ID, current, updates)
	if err != nil {
		return err
	}
	if err := RequireCASSuccess(ok, row.Table+" "+row.ID.String()+" changed concurrently"); err != nil {
		return err
	}
	*row.Version = current + 1
	if row.UpdatedAt != nil {
		*row.UpdatedAt = now
	}
	return nil
}

// RequireCASSuccess converts a lost compare-and-set into a conflict.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}
