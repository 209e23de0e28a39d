package engine

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *store {
	t.Helper()
	dir := t.TempDir()
	s, err := openStore(dir)
	if err != nil {
		t.Fatalf("openStore(%s): %v", dir, err)
	}
	t.Cleanup(func() { _ = s.close() })
	return s
}

func TestWriteReadPtrBlockRoundTrip(t *testing.T) {
	s := newTestStore(t)

	ptrs := make([]uint32, 10)
	for i := range ptrs {
		ptrs[i] = uint32(100 + i)
	}
	if err := s.writePtrBlock(1, ptrs); err != nil {
		t.Fatalf("writePtrBlock: %v", err)
	}

	got, err := s.readPtrBlock(1)
	if err != nil {
		t.Fatalf("readPtrBlock: %v", err)
	}
	for i, p := range ptrs {
		if got[i] != p {
			t.Errorf("got[%d] = %d, want %d", i, got[i], p)
		}
	}
	if got[len(ptrs)] != 0 {
		t.Errorf("expected zero terminator after %d entries, got %d", len(ptrs), got[len(ptrs)])
	}
}

func TestIterPtrBlockStopsAtZero(t *testing.T) {
	s := newTestStore(t)
	if err := s.writePtrBlock(1, []uint32{10, 20, 30}); err != nil {
		t.Fatalf("writePtrBlock: %v", err)
	}

	var seen []uint32
	if err := s.iterPtrBlock(1, func(p uint32) bool {
		seen = append(seen, p)
		return true
	}); err != nil {
		t.Fatalf("iterPtrBlock: %v", err)
	}
	if len(seen) != 3 || seen[0] != 10 || seen[1] != 20 || seen[2] != 30 {
		t.Fatalf("seen = %v, want [10 20 30]", seen)
	}
}

func TestIterPtrBlockZeroNumIsNoop(t *testing.T) {
	s := newTestStore(t)
	called := false
	if err := s.iterPtrBlock(0, func(uint32) bool {
		called = true
		return true
	}); err != nil {
		t.Fatalf("iterPtrBlock(0): %v", err)
	}
	if called {
		t.Fatalf("iterPtrBlock(0) should not invoke fn")
	}
}

func TestSegmentPathNaming(t *testing.T) {
	got := segmentPath("/archive", "data_segment_", 3)
	want := filepath.Join("/archive", "data_segment_3.seg")
	if got != want {
		t.Errorf("segmentPath = %q, want %q", got, want)
	}
}
