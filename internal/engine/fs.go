package engine

import (
	"github.com/sirupsen/logrus"
)

// Filesystem is an open ExFS2 archive: the segment store plus the
// allocator cache built over it. It is an explicit context constructed
// by Open and released by Close, so nothing here is a package-level
// singleton.
type Filesystem struct {
	dir   string
	s     *store
	alloc *allocator
	log   *logrus.Entry
}

// Open opens the archive rooted at dir, creating it (segment 0 of each
// family, plus the root inode) if it does not yet exist.
func Open(dir string, log *logrus.Entry) (*Filesystem, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s, err := openStore(dir)
	if err != nil {
		return nil, err
	}

	root, err := s.readInode(RootInode)
	if err != nil {
		return nil, err
	}
	if root.Type != TypeDir {
		root = &Inode{Type: TypeDir}
		root.Direct[0] = RootDirBlock
		if err := s.writeInode(RootInode, root); err != nil {
			return nil, err
		}
		log.WithField("op", "init").Debug("created root inode")
	}

	alloc, err := newAllocator(s)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"op":            "init",
		"inodeSegments": s.inodes.count(),
		"dataSegments":  s.data.count(),
	}).Info("filesystem initialized")

	return &Filesystem{dir: dir, s: s, alloc: alloc, log: log}, nil
}

// Close releases the underlying segment file handles.
func (fs *Filesystem) Close() error {
	return fs.s.close()
}
