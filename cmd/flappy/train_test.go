package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/flappy-rl/internal/dqn"
	"github.com/vovakirdan/flappy-rl/internal/storage"
)

func TestRunStatus(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, storage.RunFinished},
		{context.Canceled, storage.RunCancelled},
		{fmt.Errorf("dqn: %w", context.Canceled), storage.RunCancelled},
		{errors.New("boom"), storage.RunFailed},
	}

	for _, tt := range tests {
		if got := runStatus(tt.err); got != tt.expected {
			t.Errorf("runStatus(%v) = %q, expected %q", tt.err, got, tt.expected)
		}
	}
}

func TestStoreRecorder(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	if _, err := store.CreateRun(storage.TrainingRun{RunID: "run-1", Episodes: 2}); err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}

	var rec dqn.EpisodeRecorder = storeRecorder{store}
	stats := dqn.EpisodeStats{Episode: 0, Steps: 120, Reward: -99, Score: 1, Epsilon: 0.8, MeanLoss: 0.25, Truncated: true}
	if err := rec.RecordEpisode("run-1", stats); err != nil {
		t.Fatalf("RecordEpisode() failed: %v", err)
	}

	episodes, err := store.RunEpisodes("run-1")
	if err != nil {
		t.Fatalf("RunEpisodes() failed: %v", err)
	}
	if len(episodes) != 1 {
		t.Fatalf("got %d episodes, expected 1", len(episodes))
	}
	ep := episodes[0]
	if ep.Steps != 120 || ep.Score != 1 || ep.Loss != 0.25 || !ep.Truncated {
		t.Errorf("stored episode = %+v", ep)
	}
}
