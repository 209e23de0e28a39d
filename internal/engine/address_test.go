package engine

import "testing"

func TestBlockAddress(t *testing.T) {
	cases := []struct {
		global    uint32
		segCount  int
		wantSeg   int
		wantOff   int
		wantError bool
	}{
		{0, 1, 0, 0, false},
		{1, 1, 0, 1, false},
		{BlocksPerSegment, 2, 1, 0, false},
		{BlocksPerSegment + 5, 2, 1, 5, false},
		{BlocksPerSegment, 1, 0, 0, true},
	}
	for _, c := range cases {
		seg, off, err := blockAddress(c.global, c.segCount)
		if c.wantError {
			if err == nil {
				t.Errorf("blockAddress(%d, %d) expected error, got none", c.global, c.segCount)
			}
			continue
		}
		if err != nil {
			t.Errorf("blockAddress(%d, %d) unexpected error: %v", c.global, c.segCount, err)
			continue
		}
		if seg != c.wantSeg || off != c.wantOff {
			t.Errorf("blockAddress(%d, %d) = (%d, %d), want (%d, %d)", c.global, c.segCount, seg, off, c.wantSeg, c.wantOff)
		}
	}
}

func TestInodeAddressRoundTripsWithGlobalInode(t *testing.T) {
	for _, global := range []uint32{0, 1, InodesPerSegment, InodesPerSegment + 42} {
		segCount := int(global/InodesPerSegment) + 1
		seg, off, err := inodeAddress(global, segCount)
		if err != nil {
			t.Fatalf("inodeAddress(%d, %d): %v", global, segCount, err)
		}
		if got := globalInode(seg, off); got != global {
			t.Errorf("globalInode(%d, %d) = %d, want %d", seg, off, got, global)
		}
	}
}

func TestBlockAddressRoundTripsWithGlobalBlock(t *testing.T) {
	for _, global := range []uint32{1, BlocksPerSegment, BlocksPerSegment + 7} {
		segCount := int(global/BlocksPerSegment) + 1
		seg, off, err := blockAddress(global, segCount)
		if err != nil {
			t.Fatalf("blockAddress(%d, %d): %v", global, segCount, err)
		}
		if got := globalBlock(seg, off); got != global {
			t.Errorf("globalBlock(%d, %d) = %d, want %d", seg, off, got, global)
		}
	}
}
