package db

import (
	"fmt"

	types "github.com/yungbote/routineflow-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.All()...)
}

// EnsureRoutineIndexes adds constraints AutoMigrate cannot express.
func EnsureRoutineIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_routines_one_active_per_user
		ON routines(user_id)
		WHERE is_active;
	`).Error; err != nil {
		return fmt.Errorf("create idx_routines_one_active_per_user: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_routine_blocks_routine_day_start
		ON routine_blocks(routine_id, day_of_week, start_time);
	`).Error; err != nil {
		return fmt.Errorf("create idx_routine_blocks_routine_day_start: %w", err)
	}
	for _, stmt := range []struct{ name, sql string }{
		{"chk_routine_blocks_day", `ALTER TABLE routine_blocks ADD CONSTRAINT chk_routine_blocks_day CHECK (day_of_week BETWEEN 0 AND 6)`},
		{"chk_routine_blocks_type", `ALTER TABLE routine_blocks ADD CONSTRAINT chk_routine_blocks_type CHECK (block_type IN ('focus','rest','personal','fixed'))`},
		{"chk_profiles_plan", `ALTER TABLE profiles ADD CONSTRAINT chk_profiles_plan CHECK (plan IN ('free','pro','annual'))`},
	} {
		var exists int64
		if err := db.Raw(`SELECT COUNT(*) FROM pg_constraint WHERE conname = ?`, stmt.name).Scan(&exists).Error; err != nil {
			return fmt.Errorf("lookup %s: %w", stmt.name, err)
		}
		if exists > 0 {
			continue
		}
		if err := db.Exec(stmt.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", stmt.name, err)
		}
	}
	return nil
}
