package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/exfs2/exfs2/backend"
	"github.com/exfs2/exfs2/backend/file"
)

// segmentFamily is one of the two disjoint collections of fixed-size
// backing files that make up an archive: inode segments or data
// segments. Each member wraps a single backend.Storage, and the family
// holds many of them, opened eagerly and addressed by index.
type segmentFamily struct {
	dir     string
	prefix  string // "inode_segment_" or "data_segment_"
	storage []backend.Storage
}

func segmentPath(dir, prefix string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d.seg", prefix, index))
}

// openFamily scans dir for <prefix><n>.seg files starting at index 0 and
// stopping at the first missing index, opening each for read-write. If
// none exist, it creates index 0, truncated to SegmentSize.
func openFamily(dir, prefix string) (*segmentFamily, bool, error) {
	fam := &segmentFamily{dir: dir, prefix: prefix}
	created := false

	for i := 0; i < MaxSegments; i++ {
		p := segmentPath(dir, prefix, i)
		if _, err := os.Stat(p); err != nil {
			break
		}
		st, err := file.OpenFromPath(p, false)
		if err != nil {
			return nil, false, fmt.Errorf("opening segment %s: %w", p, err)
		}
		fam.storage = append(fam.storage, st)
	}

	if len(fam.storage) == 0 {
		st, err := fam.create(0)
		if err != nil {
			return nil, false, err
		}
		fam.storage = append(fam.storage, st)
		created = true
	}

	return fam, created, nil
}

func (f *segmentFamily) create(index int) (backend.Storage, error) {
	p := segmentPath(f.dir, f.prefix, index)
	st, err := file.CreateFromPath(p, SegmentSize)
	if err != nil {
		return nil, fmt.Errorf("creating segment %s: %w", p, err)
	}
	return st, nil
}

// extend creates the next segment in the family and appends it.
// Returns its index.
func (f *segmentFamily) extend() (int, error) {
	if len(f.storage) >= MaxSegments {
		return 0, ErrTooManySegments
	}
	idx := len(f.storage)
	st, err := f.create(idx)
	if err != nil {
		return 0, err
	}
	f.storage = append(f.storage, st)
	return idx, nil
}

func (f *segmentFamily) count() int {
	return len(f.storage)
}

func (f *segmentFamily) writableAt(seg int) (backend.WritableFile, error) {
	if seg < 0 || seg >= len(f.storage) {
		return nil, fmt.Errorf("%w: segment %d of %d in family %s", ErrInvalidAddress, seg, len(f.storage), f.prefix)
	}
	return f.storage[seg].Writable()
}

// readAt reads exactly len(buf) bytes at byte offset off within segment seg.
func (f *segmentFamily) readAt(seg int, off int64, buf []byte) error {
	if seg < 0 || seg >= len(f.storage) {
		return fmt.Errorf("%w: segment %d of %d in family %s", ErrInvalidAddress, seg, len(f.storage), f.prefix)
	}
	n, err := f.storage[seg].ReadAt(buf, off)
	if err != nil && n != len(buf) {
		return fmt.Errorf("reading segment %s at %d: %w", f.prefix, off, err)
	}
	return nil
}

// writeAt writes buf at byte offset off within segment seg and flushes.
func (f *segmentFamily) writeAt(seg int, off int64, buf []byte) error {
	w, err := f.writableAt(seg)
	if err != nil {
		return err
	}
	if _, err := w.WriteAt(buf, off); err != nil {
		return fmt.Errorf("writing segment %s at %d: %w", f.prefix, off, err)
	}
	if syncer, ok := w.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return fmt.Errorf("flushing segment %s: %w", f.prefix, err)
		}
	}
	return nil
}

func (f *segmentFamily) close() error {
	var firstErr error
	for _, st := range f.storage {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// store is the segment store component: it owns both segment families
// and exposes whole-block / whole-inode reads and writes, with every
// write flushed before returning.
type store struct {
	inodes *segmentFamily
	data   *segmentFamily
}

// openStore opens or creates both segment families rooted at dir. When a
// fresh data segment 0 is created, its block 0 (the root directory's
// entry block) is zero-filled.
func openStore(dir string) (*store, error) {
	inodeFam, _, err := openFamily(dir, "inode_segment_")
	if err != nil {
		return nil, err
	}
	dataFam, dataCreated, err := openFamily(dir, "data_segment_")
	if err != nil {
		return nil, err
	}
	if dataCreated {
		zero := make([]byte, BlockSize)
		if err := dataFam.writeAt(0, 0, zero); err != nil {
			return nil, fmt.Errorf("zeroing root directory block: %w", err)
		}
	}
	return &store{inodes: inodeFam, data: dataFam}, nil
}

func (s *store) close() error {
	if err := s.inodes.close(); err != nil {
		return err
	}
	return s.data.close()
}

// readBlock reads the full BlockSize-byte contents of global block num.
func (s *store) readBlock(num uint32) ([]byte, error) {
	seg, off, err := blockAddress(num, s.data.count())
	if err != nil {
		return nil, err
	}
	buf := make([]byte, BlockSize)
	if err := s.data.readAt(seg, int64(off)*BlockSize, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeBlockPartial writes only len(data) bytes at the start of global
// block num, leaving the remainder of the block untouched. Used by Add
// to stream a short final chunk into an already-zero freshly allocated
// block without padding it.
func (s *store) writeBlockPartial(num uint32, data []byte) error {
	if len(data) > BlockSize {
		return fmt.Errorf("writeBlockPartial: %d bytes exceeds block size %d", len(data), BlockSize)
	}
	seg, off, err := blockAddress(num, s.data.count())
	if err != nil {
		return err
	}
	return s.data.writeAt(seg, int64(off)*BlockSize, data)
}

// writeBlock writes exactly BlockSize bytes to global block num.
func (s *store) writeBlock(num uint32, buf []byte) error {
	if len(buf) != BlockSize {
		return fmt.Errorf("writeBlock: buffer is %d bytes, want %d", len(buf), BlockSize)
	}
	seg, off, err := blockAddress(num, s.data.count())
	if err != nil {
		return err
	}
	return s.data.writeAt(seg, int64(off)*BlockSize, buf)
}

// readInode reads and decodes the inode at global inode number num.
func (s *store) readInode(num uint32) (*Inode, error) {
	seg, off, err := inodeAddress(num, s.inodes.count())
	if err != nil {
		return nil, err
	}
	buf := make([]byte, BlockSize)
	if err := s.inodes.readAt(seg, int64(off)*BlockSize, buf); err != nil {
		return nil, err
	}
	return inodeFromBytes(buf), nil
}

// writeInode encodes and writes ino at global inode number num.
func (s *store) writeInode(num uint32, ino *Inode) error {
	seg, off, err := inodeAddress(num, s.inodes.count())
	if err != nil {
		return err
	}
	return s.inodes.writeAt(seg, int64(off)*BlockSize, ino.toBytes())
}

// newInodeSegment creates the next inode segment, fatal once MaxSegments
// is exceeded.
func (s *store) newInodeSegment() (int, error) {
	return s.inodes.extend()
}

// newDataSegment creates the next data segment.
func (s *store) newDataSegment() (int, error) {
	return s.data.extend()
}
