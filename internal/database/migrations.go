package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationNullBlankExternalIDs = "2026-10-18_null_blank_external_ids"

// externalIDTables lists the tables whose external_id column carries a sparse unique index.
var externalIDTables = []string{"catalog_books", "user_books"}

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNullBlankExternalIDs, apply: nullBlankExternalIDs},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// nullBlankExternalIDs rewrites empty external ids to NULL. The unique index only
// tolerates repeated NULLs, so blank strings would collide with each other.
func nullBlankExternalIDs(db *gorm.DB) error {
	for _, table := range externalIDTables {
		if !db.Migrator().HasTable(table) {
			continue
		}
		if err := db.Table(table).
			Where("TRIM(external_id) = ''").
			Update("external_id", nil).Error; err != nil {
			return err
		}
	}
	return nil
}
