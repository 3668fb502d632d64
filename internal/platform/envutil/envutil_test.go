package envutil

import (
	"testing"
	"time"
)

func TestReaders(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "7")
	t.Setenv("ENVUTIL_BAD_INT", "seven")
	t.Setenv("ENVUTIL_BOOL", "off")
	t.Setenv("ENVUTIL_FLOAT", "0.25")
	t.Setenv("ENVUTIL_SECONDS", "3")
	t.Setenv("ENVUTIL_STRING", "  value ")

	if got := Int("ENVUTIL_INT", 1); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	if got := Int("ENVUTIL_BAD_INT", 1); got != 1 {
		t.Fatalf("Int fallback: want=1 got=%d", got)
	}
	if got := Bool("ENVUTIL_BOOL", true); got {
		t.Fatalf("Bool: want=false got=%v", got)
	}
	if got := Bool("ENVUTIL_UNSET", true); !got {
		t.Fatalf("Bool default: want=true got=%v", got)
	}
	if got := Float("ENVUTIL_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float: want=0.25 got=%v", got)
	}
	if got := Seconds("ENVUTIL_SECONDS", time.Minute); got != 3*time.Second {
		t.Fatalf("Seconds: want=3s got=%v", got)
	}
	if got := String("ENVUTIL_STRING", "def"); got != "value" {
		t.Fatalf("String: want=value got=%q", got)
	}
}
