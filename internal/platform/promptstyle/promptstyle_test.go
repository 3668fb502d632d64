package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystemIsIdempotent(t *testing.T) {
	once := ApplySystem("Write the plan.", "json")
	if !strings.HasPrefix(once, marker) || !strings.HasSuffix(once, "Write the plan.") {
		t.Fatalf("unexpected prompt: %q", once)
	}
	if twice := ApplySystem(once, "json"); twice != once {
		t.Fatalf("second application changed the prompt")
	}
	if got := ApplySystem("  ", "text"); got != "" {
		t.Fatalf("blank system: want empty got=%q", got)
	}
}
