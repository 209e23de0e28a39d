package engine

import (
	"fmt"
	"strings"
)

// splitPath tokenizes an exfs path on "/", discarding empty components
// (leading slash, trailing slash, repeated slashes), and enforces the
// maximum path depth.
func splitPath(path string) ([]string, error) {
	raw := strings.Split(path, "/")
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if t == "" {
			continue
		}
		tokens = append(tokens, t)
	}
	if len(tokens) >= MaxPathDepth {
		return nil, ErrPathTooDeep
	}
	return tokens, nil
}

// splitParentAndName splits "/a/b/c" into parent path "/a/b" and leaf
// name "c". It fails if there is no filename component after the last
// slash.
func splitParentAndName(path string) (parent string, name string, err error) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		// a bare name with no slash is still a valid leaf under root
		if path == "" {
			return "", "", ErrEmptyName
		}
		return "", path, nil
	}
	name = path[idx+1:]
	if name == "" {
		return "", "", ErrEmptyName
	}
	parent = path[:idx]
	return parent, name, nil
}

// resolve walks path from the root inode and returns the inode number it
// names. Every non-final component must already exist and be a
// directory.
func (fs *Filesystem) resolve(path string) (uint32, error) {
	tokens, err := splitPath(path)
	if err != nil {
		return 0, err
	}
	current := RootInode
	for _, name := range tokens {
		ino, err := fs.s.readInode(current)
		if err != nil {
			return 0, err
		}
		if ino.Type != TypeDir {
			return 0, fmt.Errorf("%w: inode %d", ErrNotADirectory, current)
		}
		block, err := fs.s.readBlock(ino.Direct[0])
		if err != nil {
			return 0, err
		}
		entry, found := findDirEntry(block, name)
		if !found {
			return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		current = entry.InodeNum
	}
	return current, nil
}

// resolveOrCreateParents walks every component of path except the last,
// creating missing intermediate directories as empty directories, and
// returns the inode number of the directory that will hold the final
// component.
func (fs *Filesystem) resolveOrCreateParents(path string) (uint32, error) {
	tokens, err := splitPath(path)
	if err != nil {
		return 0, err
	}
	current := RootInode
	if len(tokens) == 0 {
		return current, nil
	}
	for _, name := range tokens[:len(tokens)-1] {
		dirIno, err := fs.s.readInode(current)
		if err != nil {
			return 0, err
		}
		if dirIno.Type != TypeDir {
			return 0, fmt.Errorf("%w: inode %d", ErrNotADirectory, current)
		}
		block, err := fs.s.readBlock(dirIno.Direct[0])
		if err != nil {
			return 0, err
		}
		if entry, found := findDirEntry(block, name); found {
			current = entry.InodeNum
			continue
		}

		childBlockNum, err := fs.alloc.AllocateBlock()
		if err != nil {
			return 0, err
		}
		zero := make([]byte, BlockSize)
		if err := fs.s.writeBlock(childBlockNum, zero); err != nil {
			return 0, err
		}
		childInodeNum, err := fs.alloc.AllocateInode()
		if err != nil {
			return 0, err
		}
		childDir := &Inode{Type: TypeDir}
		childDir.Direct[0] = childBlockNum
		if err := fs.s.writeInode(childInodeNum, childDir); err != nil {
			return 0, err
		}

		if err := appendDirEntry(block, childInodeNum, name); err != nil {
			return 0, err
		}
		if err := fs.s.writeBlock(dirIno.Direct[0], block); err != nil {
			return 0, err
		}

		current = childInodeNum
	}
	return current, nil
}
