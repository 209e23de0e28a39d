package engine

import (
	"encoding/binary"
	"fmt"
)

// DirEntry is one decoded directory entry: an inode number and its name
// within the parent directory.
type DirEntry struct {
	InodeNum uint32
	Name     string
}

// entryLen returns the on-disk size in bytes of an entry for the given
// name: 4 (inode_num) + 1 (name_len) + len(name) + 1 (trailing NUL).
func entryLen(name string) int {
	return 4 + 1 + len(name) + 1
}

// iterDirEntries walks the packed entry stream in block, calling fn with
// the byte offset and decoded entry for each one, until the terminator
// (first record with inode_num == 0 or name_len == 0) or the end of the
// block. It stops early if fn returns false.
func iterDirEntries(block []byte, fn func(offset int, entry DirEntry) bool) {
	offset := 0
	for offset+5 <= len(block) {
		inodeNum := binary.LittleEndian.Uint32(block[offset:])
		nameLen := int(block[offset+4])
		if inodeNum == 0 || nameLen == 0 {
			return
		}
		nameStart := offset + 5
		nameEnd := nameStart + nameLen
		if nameEnd > len(block) {
			return
		}
		name := string(block[nameStart:nameEnd])
		if !fn(offset, DirEntry{InodeNum: inodeNum, Name: name}) {
			return
		}
		offset = nameEnd + 1 // skip trailing NUL
	}
}

// listDirEntries collects every live entry in block.
func listDirEntries(block []byte) []DirEntry {
	var entries []DirEntry
	iterDirEntries(block, func(_ int, e DirEntry) bool {
		entries = append(entries, e)
		return true
	})
	return entries
}

// findDirEntry returns the entry named name in block, if any.
func findDirEntry(block []byte, name string) (DirEntry, bool) {
	var found DirEntry
	ok := false
	iterDirEntries(block, func(_ int, e DirEntry) bool {
		if e.Name == name {
			found = e
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// terminatorOffset returns the byte offset of the first terminating
// (zero) record in block, i.e. where a new entry would be inserted.
func terminatorOffset(block []byte) int {
	offset := 0
	iterDirEntries(block, func(off int, e DirEntry) bool {
		offset = off + 5 + len(e.Name) + 1
		return true
	})
	return offset
}

// appendDirEntry writes a new (inodeNum, name) record at the terminator
// offset of block, in place. It fails without mutating block if the new
// record would not fit.
func appendDirEntry(block []byte, inodeNum uint32, name string) error {
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	offset := terminatorOffset(block)
	need := entryLen(name)
	if offset+need > len(block) {
		return fmt.Errorf("directory block full: need %d bytes at offset %d, have %d", need, offset, len(block))
	}
	binary.LittleEndian.PutUint32(block[offset:], inodeNum)
	block[offset+4] = byte(len(name))
	copy(block[offset+5:], name)
	block[offset+5+len(name)] = 0
	return nil
}

// removeDirEntry zeroes the matched record in place. It does not compact
// the stream: any entry that followed the removed one becomes invisible
// to future iteration, since iterDirEntries stops at the first zeroed
// record. This is a known limitation of the format, not a bug this
// implementation fixes.
func removeDirEntry(block []byte, name string) bool {
	found := false
	var foundOffset, foundLen int
	iterDirEntries(block, func(off int, e DirEntry) bool {
		if e.Name == name {
			found = true
			foundOffset = off
			foundLen = entryLen(e.Name)
			return false
		}
		return true
	})
	if !found {
		return false
	}
	for i := foundOffset; i < foundOffset+foundLen && i < len(block); i++ {
		block[i] = 0
	}
	return true
}
