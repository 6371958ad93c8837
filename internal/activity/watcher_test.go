package activity

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherObservesFileEvents(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()
	w.Start()

	before := w.LastEvent()
	time.Sleep(20 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "artifact.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.LastEvent().After(before) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("LastEvent() did not advance after a file write")
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
