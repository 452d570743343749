package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFirstPrefersEarlierKeys(t *testing.T) {
	t.Setenv("CFG_TEST_A", "")
	t.Setenv("CFG_TEST_B", "from-b")
	t.Setenv("CFG_TEST_C", "from-c")

	if got := First("fallback", "CFG_TEST_A", "CFG_TEST_B", "CFG_TEST_C"); got != "from-b" {
		t.Fatalf("expected from-b, got %q", got)
	}
	if got := First("fallback", "CFG_TEST_MISSING"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestBoolAndInt(t *testing.T) {
	t.Setenv("CFG_TEST_BOOL", "yes")
	t.Setenv("CFG_TEST_INT", "-4")

	if !Bool("CFG_TEST_BOOL", false) {
		t.Fatal("expected yes to be truthy")
	}
	if Bool("CFG_TEST_UNSET_BOOL", false) {
		t.Fatal("expected fallback false")
	}
	if got := Int("CFG_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback for negative int, got %d", got)
	}
}

func TestSecondsAllowsZero(t *testing.T) {
	t.Setenv("CFG_TEST_SECONDS", "0")
	if got := Seconds("CFG_TEST_SECONDS", time.Minute); got != 0 {
		t.Fatalf("expected 0, got %s", got)
	}
	t.Setenv("CFG_TEST_SECONDS", "nope")
	if got := Seconds("CFG_TEST_SECONDS", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestParseList(t *testing.T) {
	got := ParseList(" login, ,register ,")
	if len(got) != 2 || got[0] != "login" || got[1] != "register" {
		t.Fatalf("unexpected list: %#v", got)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("CFG_TEST_DOTENV=from-file\nCFG_TEST_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CFG_TEST_KEEP", "from-env")
	t.Setenv("CFG_TEST_DOTENV", "")
	os.Unsetenv("CFG_TEST_DOTENV")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("CFG_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected from-file, got %q", got)
	}
	if got := os.Getenv("CFG_TEST_KEEP"); got != "from-env" {
		t.Fatalf("expected env to win, got %q", got)
	}
}
