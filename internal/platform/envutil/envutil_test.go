package envutil

import (
	"testing"
	"time"
)

func TestReaders(t *testing.T) {
	t.Setenv("RF_INT", "42")
	t.Setenv("RF_BAD_INT", "x")
	t.Setenv("RF_BOOL", "off")
	t.Setenv("RF_SECONDS", "5")
	t.Setenv("RF_LIST", " a, ,b ")

	if got := Int("RF_INT", 1); got != 42 {
		t.Fatalf("Int: want=42 got=%d", got)
	}
	if got := Int("RF_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: want=7 got=%d", got)
	}
	if got := Bool("RF_BOOL", true); got {
		t.Fatalf("Bool: want=false got=%v", got)
	}
	if got := Bool("RF_MISSING", true); !got {
		t.Fatalf("Bool default: want=true got=%v", got)
	}
	if got := Seconds("RF_SECONDS", time.Minute); got != 5*time.Second {
		t.Fatalf("Seconds: want=5s got=%s", got)
	}
	got := List("RF_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: want=[a b] got=%v", got)
	}
	if got := String("RF_MISSING", "def"); got != "def" {
		t.Fatalf("String default: want=def got=%s", got)
	}
}
