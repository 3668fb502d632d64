package chunks_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/data/chunks"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/data/testutil"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
)

type store interface {
	StoreChunks(ctx context.Context, encounterID string, cs []domain.Chunk) error
	SearchChunks(ctx context.Context, encounterID, query string, k int) ([]domain.Chunk, error)
}

func sample(encounterID string, lines ...string) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(lines))
	for i, l := range lines {
		speaker := "doctor"
		if i%2 == 1 {
			speaker = "patient"
		}
		out = append(out, domain.Chunk{
			ChunkID:     fmt.Sprintf("%s-%d", encounterID, i),
			EncounterID: encounterID,
			Index:       i,
			LineNumbers: []int{i},
			Speaker:     speaker,
			Content:     speaker + ": " + l,
		})
	}
	return out
}

func exerciseStore(t *testing.T, s store) {
	t.Helper()
	ctx := context.Background()
	if err := s.StoreChunks(ctx, "enc-a", sample("enc-a",
		"What brings you in today?",
		"I have had chest pain since Monday.",
		"Any shortness of breath with the chest pain?",
		"No, just the pain.",
	)); err != nil {
		t.Fatalf("StoreChunks enc-a: %v", err)
	}
	if err := s.StoreChunks(ctx, "enc-b", sample("enc-b", "Chest pain chest pain chest pain")); err != nil {
		t.Fatalf("StoreChunks enc-b: %v", err)
	}

	got, err := s.SearchChunks(ctx, "enc-a", "Information for History: chest pain onset", 2)
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len: want=2 got=%d", len(got))
	}
	for _, c := range got {
		if c.EncounterID != "enc-a" {
			t.Fatalf("foreign chunk returned: %+v", c)
		}
		if len(c.LineNumbers) != 1 {
			t.Fatalf("line numbers lost: %+v", c)
		}
		if c.Score <= 0 {
			t.Fatalf("score not attached: %+v", c)
		}
	}

	none, err := s.SearchChunks(ctx, "enc-a", "xylophone", 5)
	if err != nil {
		t.Fatalf("SearchChunks no match: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("no-match query: want empty got=%v", none)
	}

	missing, err := s.SearchChunks(ctx, "enc-unknown", "chest pain", 5)
	if err != nil || len(missing) != 0 {
		t.Fatalf("unknown encounter: want empty got=%v err=%v", missing, err)
	}

	if _, err := s.SearchChunks(ctx, "", "chest pain", 5); !errors.Is(err, chunks.ErrEncounterRequired) {
		t.Fatalf("empty encounter: want ErrEncounterRequired got=%v", err)
	}

	// Re-storing the same chunks is an upsert.
	if err := s.StoreChunks(ctx, "enc-b", sample("enc-b", "Chest pain chest pain chest pain")); err != nil {
		t.Fatalf("StoreChunks again: %v", err)
	}
	again, _ := s.SearchChunks(ctx, "enc-b", "chest", 10)
	if len(again) != 1 {
		t.Fatalf("upsert duplicated rows: got=%d", len(again))
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, chunks.NewMemoryStore())
}

func TestGormStoreSQLite(t *testing.T) {
	conn := testutil.SQLite(t)
	exerciseStore(t, chunks.NewGormStore(conn, testutil.Logger(t)))
}

func TestGormStorePostgres(t *testing.T) {
	conn := testutil.Tx(t, testutil.Postgres(t))
	exerciseStore(t, chunks.NewGormStore(conn, testutil.Logger(t)))
}

func TestRankPrefersOverlapThenLaterTurns(t *testing.T) {
	cs := sample("e", "chest pain", "chest pain", "headache")
	got := chunks.Rank(cs, "chest pain", 3)
	if len(got) != 2 {
		t.Fatalf("len: want=2 got=%d", len(got))
	}
	if got[0].Index != 1 {
		t.Fatalf("tie on overlap should favor later turn: got=%+v", got)
	}
	if r := chunks.Rank(cs, "", 3); len(r) != 0 {
		t.Fatalf("blank query: want empty got=%v", r)
	}
	if r := chunks.Rank(cs, "chest", 0); len(r) != 0 {
		t.Fatalf("k=0: want empty got=%v", r)
	}
}

func TestTokensDropsStopwords(t *testing.T) {
	got := chunks.Tokens("Information for the Plan: BP 140/90, re-check in 2 weeks")
	want := "plan,140,check,weeks"
	if fmt.Sprint(len(got)) != "4" || fmt.Sprintf("%s,%s,%s,%s", got[0], got[1], got[2], got[3]) != want {
		t.Fatalf("want=%s got=%v", want, got)
	}
}
