package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/okrbridge-backend/internal/domain/okr"
)

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&types.CorporateObjective{},
		&types.Objective{},
		&types.CheckIn{},

		// Derived stats projections
		&types.ObjectiveStats{},
		&types.CorporateObjectiveStats{},
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
