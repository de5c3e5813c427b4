package replay

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
)

// tr builds a transition tagged by its reward for identification.
func tr(id int) Transition {
	return Transition{
		Obs:    flappy.Observation{float32(id)},
		Action: flappy.Action(id % 2),
		Reward: float64(id),
	}
}

func newTestBuffer(t *testing.T, capacity int) *Buffer {
	t.Helper()
	b, err := New(capacity, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return b
}

func TestNewRejectsCapacity(t *testing.T) {
	for _, c := range []int{0, -5} {
		if _, err := New(c, nil); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("New(%d) error = %v, expected ErrInvalidCapacity", c, err)
		}
	}
}

func TestBufferAddAndSize(t *testing.T) {
	b := newTestBuffer(t, 4)
	if b.Size() != 0 || b.Capacity() != 4 {
		t.Fatalf("new buffer size=%d cap=%d", b.Size(), b.Capacity())
	}

	for i := 1; i <= 3; i++ {
		b.Add(tr(i))
		if b.Size() != i {
			t.Errorf("after %d adds size = %d", i, b.Size())
		}
	}

	for i := 0; i < 3; i++ {
		got, ok := b.At(i)
		if !ok || got.Reward != float64(i+1) {
			t.Errorf("At(%d) = %v, %v", i, got.Reward, ok)
		}
	}
	if _, ok := b.At(3); ok {
		t.Error("At past size should report false")
	}
}

func TestBufferEvictsOldest(t *testing.T) {
	const capacity = 5
	b := newTestBuffer(t, capacity)

	for i := 1; i <= capacity+1; i++ {
		b.Add(tr(i))
	}

	if b.Size() != capacity {
		t.Fatalf("size = %d, expected %d", b.Size(), capacity)
	}

	for i := 0; i < b.Size(); i++ {
		got, _ := b.At(i)
		if got.Reward == 1 {
			t.Fatal("first inserted transition should have been evicted")
		}
		if want := float64(i + 2); got.Reward != want {
			t.Errorf("At(%d) = %v, expected %v", i, got.Reward, want)
		}
	}

	// Eviction also shows in samples
	all, err := b.Sample(capacity)
	if err != nil {
		t.Fatalf("Sample() failed: %v", err)
	}
	for _, s := range all {
		if s.Reward == 1 {
			t.Fatal("sample returned an evicted transition")
		}
	}
}

func TestBufferSampleErrors(t *testing.T) {
	b := newTestBuffer(t, 10)
	for i := 0; i < 3; i++ {
		b.Add(tr(i))
	}

	tests := []struct {
		name string
		n    int
		want error
	}{
		{"more than size", 4, ErrNotEnoughSamples},
		{"zero", 0, ErrInvalidBatch},
		{"negative", -1, ErrInvalidBatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := b.Sample(tt.n)
			if !errors.Is(err, tt.want) {
				t.Errorf("Sample(%d) error = %v, expected %v", tt.n, err, tt.want)
			}
			if out != nil {
				t.Error("failed sample should not return a partial batch")
			}
		})
	}
}

func TestBufferSampleDistinct(t *testing.T) {
	b := newTestBuffer(t, 100)
	for i := 0; i < 50; i++ {
		b.Add(tr(i))
	}

	for _, n := range []int{1, 10, 50} {
		out, err := b.Sample(n)
		if err != nil {
			t.Fatalf("Sample(%d) failed: %v", n, err)
		}
		if len(out) != n {
			t.Fatalf("Sample(%d) returned %d", n, len(out))
		}
		seen := make(map[float64]bool)
		for _, s := range out {
			if seen[s.Reward] {
				t.Fatalf("Sample(%d) returned duplicate %v", n, s.Reward)
			}
			seen[s.Reward] = true
		}
	}
}

func TestBufferSampleDeterministic(t *testing.T) {
	fill := func() *Buffer {
		b := newTestBuffer(t, 20)
		for i := 0; i < 20; i++ {
			b.Add(tr(i))
		}
		return b
	}

	s1, _ := fill().Sample(8)
	s2, _ := fill().Sample(8)
	for i := range s1 {
		if s1[i].Reward != s2[i].Reward {
			t.Fatalf("samples differ at %d with the same seed", i)
		}
	}
}

func TestBufferSampleCoversContents(t *testing.T) {
	b := newTestBuffer(t, 8)
	for i := 0; i < 8; i++ {
		b.Add(tr(i))
	}

	seen := make(map[float64]bool)
	for i := 0; i < 200; i++ {
		out, err := b.Sample(2)
		if err != nil {
			t.Fatalf("Sample() failed: %v", err)
		}
		for _, s := range out {
			seen[s.Reward] = true
		}
	}
	if len(seen) != 8 {
		t.Errorf("sampling reached %d of 8 transitions", len(seen))
	}
}
