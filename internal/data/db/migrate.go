package db

import (
	"gorm.io/gorm"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/data/chunks"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&chunks.EncounterChunk{},
	)
}
