package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogWritesWhenEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "debug.log")
	if err := EnableFile(path); err != nil {
		t.Fatalf("EnableFile: %v", err)
	}
	defer Disable()

	Log("engine", "play %s at %.2f", "kick", 1.5)
	for i := 0; i < 4; i++ {
		LogEvery(2, "player", "poll")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "play kick at 1.50") {
		t.Errorf("log missing engine line:\n%s", out)
	}
	if got := strings.Count(out, "poll (every 2"); got != 2 {
		t.Errorf("LogEvery wrote %d lines, want 2", got)
	}
}

func TestLogDisabledIsSilent(t *testing.T) {
	Disable()
	if Enabled() {
		t.Fatal("Enabled() = true after Disable")
	}
	// must not panic with no file
	Log("engine", "dropped")
	LogEvery(1, "engine", "dropped")
}
