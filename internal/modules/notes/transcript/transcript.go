// Package transcript turns raw speaker records into line-indexed turns and
// turn-atomic retrieval chunks.
package transcript

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

const StrategyOneChunkPerTurn = "one_chunk_per_turn"

// Normalize validates raw records. LineNumber is the index in raw, so lines
// stay stable when earlier records are dropped. A record without an id gets
// one derived from its line.
func Normalize(log *logger.Logger, raw []domain.RawTurn) []domain.TranscriptTurn {
	turns := make([]domain.TranscriptTurn, 0, len(raw))
	for i, r := range raw {
		if r.Invalid != "" {
			log.Warn("Dropping transcript record", "line_number", i, "reason", r.Invalid)
			continue
		}
		speaker := strings.TrimSpace(r.Speaker)
		if speaker == "" {
			log.Warn("Dropping transcript record", "line_number", i, "reason", "missing speaker")
			continue
		}
		id := strings.TrimSpace(r.ID)
		if id == "" {
			id = strconv.Itoa(i)
		}
		turns = append(turns, domain.TranscriptTurn{
			LineNumber: i,
			Speaker:    speaker,
			Text:       strings.TrimSpace(r.Text),
			TurnID:     id,
		})
	}
	if dropped := len(raw) - len(turns); dropped > 0 {
		log.Info("Transcript normalized", "records_in", len(raw), "turns_out", len(turns), "dropped", dropped)
	}
	return turns
}

// Chunk emits exactly one chunk per turn, in input order.
func Chunk(log *logger.Logger, encounterID string, turns []domain.TranscriptTurn) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(turns))
	for i, t := range turns {
		id := t.TurnID
		if id == "" {
			id = fmt.Sprintf("%s_chunk_%d", encounterID, i)
		}
		chunks = append(chunks, domain.Chunk{
			ChunkID:     id,
			EncounterID: encounterID,
			Index:       i,
			LineNumbers: []int{t.LineNumber},
			Speaker:     t.Speaker,
			Content:     t.Speaker + ": " + t.Text,
		})
	}
	log.Info("Transcript chunked",
		"encounter_id", encounterID,
		"total_turns", len(turns),
		"chunks_created", len(chunks),
		"strategy", StrategyOneChunkPerTurn,
	)
	return chunks
}

// Format renders turns as the line-numbered transcript shown to the model.
func Format(turns []domain.TranscriptTurn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[line %d] %s: %s", t.LineNumber, t.Speaker, t.Text)
	}
	return b.String()
}

// Index is a lookup of turns by line number.
type Index map[int]domain.TranscriptTurn

func NewIndex(turns []domain.TranscriptTurn) Index {
	idx := make(Index, len(turns))
	for _, t := range turns {
		idx[t.LineNumber] = t
	}
	return idx
}
