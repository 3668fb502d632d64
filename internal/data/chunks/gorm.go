package chunks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

// EncounterChunk is the persisted form of a chunk.
type EncounterChunk struct {
	ID          uint           `gorm:"primaryKey" json:"-"`
	EncounterID string         `gorm:"column:encounter_id;not null;uniqueIndex:idx_encounter_chunk,priority:1" json:"encounter_id"`
	ChunkID     string         `gorm:"column:chunk_id;not null;uniqueIndex:idx_encounter_chunk,priority:2" json:"chunk_id"`
	Position    int            `gorm:"column:position;not null" json:"position"`
	Speaker     string         `gorm:"column:speaker;not null" json:"speaker"`
	Content     string         `gorm:"column:content;type:text;not null" json:"content"`
	LineNumbers datatypes.JSON `gorm:"column:line_numbers" json:"line_numbers"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (EncounterChunk) TableName() string { return "encounter_chunk" }

const storeBatchSize = 200

// GormStore persists chunks in Postgres or SQLite. Every query is scoped by
// encounter_id.
type GormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGormStore(db *gorm.DB, log *logger.Logger) *GormStore {
	return &GormStore{db: db, log: log.With("service", "ChunkStore")}
}

func (s *GormStore) StoreChunks(ctx context.Context, encounterID string, chunks []domain.Chunk) error {
	if encounterID == "" {
		return ErrEncounterRequired
	}
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]EncounterChunk, 0, len(chunks))
	for _, c := range chunks {
		lines, err := json.Marshal(c.LineNumbers)
		if err != nil {
			return fmt.Errorf("chunks: encode line numbers: %w", err)
		}
		rows = append(rows, EncounterChunk{
			EncounterID: encounterID,
			ChunkID:     c.ChunkID,
			Position:    c.Index,
			Speaker:     c.Speaker,
			Content:     c.Content,
			LineNumbers: datatypes.JSON(lines),
		})
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "encounter_id"}, {Name: "chunk_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"position", "speaker", "content", "line_numbers"}),
		}).
		CreateInBatches(&rows, storeBatchSize).Error
	if err != nil {
		return describe("store chunks", err)
	}
	s.log.Debug("Chunks stored", "encounter_id", encounterID, "count", len(rows))
	return nil
}

func (s *GormStore) SearchChunks(ctx context.Context, encounterID, query string, k int) ([]domain.Chunk, error) {
	if encounterID == "" {
		return nil, ErrEncounterRequired
	}
	var rows []EncounterChunk
	err := s.db.WithContext(ctx).
		Where("encounter_id = ?", encounterID).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, describe("search chunks", err)
	}
	candidates := make([]domain.Chunk, 0, len(rows))
	for _, r := range rows {
		var lines []int
		if len(r.LineNumbers) > 0 {
			if err := json.Unmarshal(r.LineNumbers, &lines); err != nil {
				return nil, fmt.Errorf("chunks: decode line numbers for %s: %w", r.ChunkID, err)
			}
		}
		candidates = append(candidates, domain.Chunk{
			ChunkID:     r.ChunkID,
			EncounterID: r.EncounterID,
			Index:       r.Position,
			LineNumbers: lines,
			Speaker:     r.Speaker,
			Content:     r.Content,
		})
	}
	return Rank(candidates, query, k), nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// describe adds the SQLSTATE to Postgres errors.
func describe(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("chunks: %s: sqlstate %s: %w", op, pgErr.Code, err)
	}
	return fmt.Errorf("chunks: %s: %w", op, err)
}
