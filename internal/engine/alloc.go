package engine

import (
	"github.com/exfs2/exfs2/util/bitmap"
)

// allocator implements the Inode & Block Allocator. The on-disk format
// carries no free bitmap; free status is inferred by scanning live
// references plus block contents. This allocator keeps an in-memory
// bitmap cache over that scan as a performance layer, so the on-disk
// format stays bitmap-free while the dual "reachable or non-zero" rule
// is preserved. The cache is built once by a full scan and kept in sync
// afterwards because every block and inode claim in this package flows
// through AllocateBlock/AllocateInode and every release flows through
// FreeBlock/FreeInode.
type allocator struct {
	s *store

	// inodeUsed[i] set means inode i is known non-free. Sized to
	// s.inodes.count()*InodesPerSegment bits.
	inodeUsed *bitmap.Bitmap
	// blockUsed[b] set means data block b is known in use (reachable
	// from a live inode's direct[] pointers, or non-zero on disk, or
	// reserved as a segment's block 0). Sized to
	// s.data.count()*BlocksPerSegment bits.
	blockUsed *bitmap.Bitmap
}

// newAllocator builds the cache with one full pass over every existing
// segment.
func newAllocator(s *store) (*allocator, error) {
	a := &allocator{s: s}
	if err := a.rebuild(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *allocator) rebuild() error {
	inodeSegs := a.s.inodes.count()
	a.inodeUsed = bitmap.NewBits(inodeSegs * InodesPerSegment)

	dataSegs := a.s.data.count()
	a.blockUsed = bitmap.NewBits(dataSegs * BlocksPerSegment)

	// Block 0 of every data segment is reserved.
	for seg := 0; seg < dataSegs; seg++ {
		if err := a.blockUsed.Set(seg * BlocksPerSegment); err != nil {
			return err
		}
	}

	for seg := 0; seg < inodeSegs; seg++ {
		for off := 0; off < InodesPerSegment; off++ {
			num := globalInode(seg, off)
			ino, err := a.s.readInode(num)
			if err != nil {
				return err
			}
			if ino.IsFree() {
				continue
			}
			if err := a.inodeUsed.Set(int(num)); err != nil {
				return err
			}
			for _, d := range ino.Direct {
				if d == 0 {
					continue
				}
				dSeg, dOff, err := blockAddress(d, dataSegs)
				if err != nil {
					return err
				}
				if err := a.blockUsed.Set(dSeg*BlocksPerSegment + dOff); err != nil {
					return err
				}
			}
		}
	}

	// Indirect blocks are not referenced from direct[], so the only way
	// to protect them is the non-zero content test.
	for seg := 0; seg < dataSegs; seg++ {
		for off := 1; off < BlocksPerSegment; off++ {
			loc := seg*BlocksPerSegment + off
			used, err := a.blockUsed.IsSet(loc)
			if err != nil {
				return err
			}
			if used {
				continue
			}
			b, err := a.s.readBlock(globalBlock(seg, off))
			if err != nil {
				return err
			}
			if !isAllZero(b) {
				if err := a.blockUsed.Set(loc); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func isAllZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// AllocateInode returns the first free inode number, creating a new
// inode segment if every existing slot is occupied.
func (a *allocator) AllocateInode() (uint32, error) {
	loc := a.inodeUsed.FirstFree(0)
	if loc < 0 {
		segIdx, err := a.s.newInodeSegment()
		if err != nil {
			return 0, err
		}
		grown := make([]byte, (segIdx+1)*InodesPerSegment/8)
		copy(grown, a.inodeUsed.ToBytes())
		a.inodeUsed = bitmap.FromBytes(grown)
		loc = segIdx * InodesPerSegment
	}
	if err := a.inodeUsed.Set(loc); err != nil {
		return 0, err
	}
	return uint32(loc), nil
}

// FreeInode marks num's slot free again in the cache; the caller is
// responsible for zeroing the on-disk record.
func (a *allocator) FreeInode(num uint32) error {
	return a.inodeUsed.Clear(int(num))
}

// AllocateBlock returns the first free data block, skipping block 0 of
// every segment and creating a new data segment (returning its block 1)
// if none is free. Tie-break is lowest segment then lowest block index,
// which FirstFree already guarantees since blocks are numbered
// segment-major.
func (a *allocator) AllocateBlock() (uint32, error) {
	loc := a.blockUsed.FirstFree(1)
	if loc < 0 {
		segIdx, err := a.s.newDataSegment()
		if err != nil {
			return 0, err
		}
		grown := make([]byte, (segIdx+1)*BlocksPerSegment/8)
		copy(grown, a.blockUsed.ToBytes())
		a.blockUsed = bitmap.FromBytes(grown)
		if err := a.blockUsed.Set(segIdx * BlocksPerSegment); err != nil {
			return 0, err
		}
		loc = segIdx*BlocksPerSegment + 1
	}
	if err := a.blockUsed.Set(loc); err != nil {
		return 0, err
	}
	return uint32(loc), nil
}

// FreeBlock marks num free again in the cache; the caller is responsible
// for zeroing the on-disk block.
func (a *allocator) FreeBlock(num uint32) error {
	seg, off, err := blockAddress(num, a.s.data.count())
	if err != nil {
		return err
	}
	if off == 0 {
		// block 0 of a segment is permanently reserved, never freed
		return nil
	}
	return a.blockUsed.Clear(seg*BlocksPerSegment + off)
}
