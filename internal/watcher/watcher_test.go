package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		ev   fsnotify.Event
		want Kind
		ok   bool
	}{
		{"create", fsnotify.Event{Name: "/d/a", Op: fsnotify.Create}, Created, true},
		{"remove", fsnotify.Event{Name: "/d/a", Op: fsnotify.Remove}, Deleted, true},
		{"rename", fsnotify.Event{Name: "/d/a", Op: fsnotify.Rename}, Renamed, true},
		{"write", fsnotify.Event{Name: "/d/a", Op: fsnotify.Write}, Changed, true},
		{"chmod ignored", fsnotify.Event{Name: "/d/a", Op: fsnotify.Chmod}, 0, false},
		{"hidden ignored", fsnotify.Event{Name: "/d/.a", Op: fsnotify.Create}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.ev)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got.Kind != tt.want {
				t.Fatalf("kind = %s, want %s", got.Kind, tt.want)
			}
		})
	}
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	var mu sync.Mutex
	var calls [][]Event
	done := make(chan struct{}, 4)

	d := NewDebouncer(50*time.Millisecond, func(batch []Event) {
		mu.Lock()
		calls = append(calls, batch)
		mu.Unlock()
		done <- struct{}{}
	})

	d.Add(Event{Kind: Created, Path: "a"})
	d.Add(Event{Kind: Changed, Path: "a"})
	d.Add(Event{Kind: Deleted, Path: "b"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("debounced callback never fired")
	}
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("expected 1 refresh, got %d", len(calls))
	}
	if len(calls[0]) != 3 {
		t.Fatalf("expected 3 events in batch, got %d", len(calls[0]))
	}
}

func TestDebouncerStop(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := NewDebouncer(30*time.Millisecond, func([]Event) { fired <- struct{}{} })
	d.Add(Event{Kind: Created})
	d.Stop()

	select {
	case <-fired:
		t.Fatalf("stopped debouncer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcherDeliversBatch(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []Event, 4)
	go w.Run(ctx, func(batch []Event) { got <- batch })

	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case batch := <-got:
		if len(batch) == 0 || batch[0].Kind != Created {
			t.Fatalf("unexpected batch %+v", batch)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no batch delivered")
	}
}

func TestNewMissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing"), 0); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
