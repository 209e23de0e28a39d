package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/exfs2/exfs2/util"
)

// debugDumpBytes bounds how much of a file's first block the -D dump
// renders as hex/ASCII, keeping the report readable for small files
// without truncating the common case.
const debugDumpBytes = 256

// doubleIndirectBuilder accumulates the double-indirect tree of a file
// being added. Rows arrive in strictly increasing order as add() streams
// the host file forward, so there is never a need to revisit an earlier
// row; inner row blocks are allocated lazily as they're first touched
// instead of reserving the full 1024x1024 grid up front.
type doubleIndirectBuilder struct {
	rowBlock []uint32
	rowPtrs  [][]uint32
}

func (d *doubleIndirectBuilder) set(i, j int, ptr uint32, allocBlock func() (uint32, error)) error {
	for len(d.rowBlock) <= i {
		d.rowBlock = append(d.rowBlock, 0)
		d.rowPtrs = append(d.rowPtrs, make([]uint32, PtrsPerBlock))
	}
	if d.rowBlock[i] == 0 {
		nb, err := allocBlock()
		if err != nil {
			return err
		}
		d.rowBlock[i] = nb
	}
	d.rowPtrs[i][j] = ptr
	return nil
}

// Add streams the contents of hostPath into the archive at exfsPath,
// creating any missing intermediate directories.
func (fs *Filesystem) Add(exfsPath, hostPath string) error {
	log := fs.log.WithField("op", "add")

	tokens, err := splitPath(exfsPath)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return ErrEmptyName
	}
	name := tokens[len(tokens)-1]
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}

	parentNum, err := fs.resolveOrCreateParents(exfsPath)
	if err != nil {
		return err
	}
	parentIno, err := fs.s.readInode(parentNum)
	if err != nil {
		return err
	}
	parentBlock, err := fs.s.readBlock(parentIno.Direct[0])
	if err != nil {
		return err
	}
	if _, found := findDirEntry(parentBlock, name); found {
		log.WithField("path", exfsPath).Warn("already exists")
		return fmt.Errorf("%w: %q", ErrAlreadyExists, exfsPath)
	}

	src, err := os.Open(hostPath)
	if err != nil {
		return fmt.Errorf("opening host file %s: %w", hostPath, err)
	}
	defer src.Close()
	st, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat host file %s: %w", hostPath, err)
	}
	totalSize := st.Size()

	var ino Inode
	ino.Type = TypeFile

	var single []uint32
	var double doubleIndirectBuilder

	reader := bufio.NewReaderSize(src, BlockSize)
	chunk := make([]byte, BlockSize)
	var written int64
	logicalBlock := 0
	lastPercent := -1

	for {
		n, readErr := io.ReadFull(reader, chunk)
		if n == 0 {
			if readErr == io.EOF {
				break
			}
		}
		if n > 0 {
			blockNum, allocErr := fs.alloc.AllocateBlock()
			if allocErr != nil {
				return allocErr
			}
			if writeErr := fs.s.writeBlockPartial(blockNum, chunk[:n]); writeErr != nil {
				return writeErr
			}
			written += int64(n)

			switch {
			case logicalBlock < maxDirectFileBlocks:
				ino.Direct[logicalBlock] = blockNum
			case logicalBlock < maxSingleIndirectFileBlocks:
				for len(single) <= logicalBlock-maxDirectFileBlocks {
					single = append(single, 0)
				}
				single[logicalBlock-maxDirectFileBlocks] = blockNum
			case logicalBlock < maxDoubleIndirectFileBlocks:
				rel := logicalBlock - maxSingleIndirectFileBlocks
				i, j := rel/PtrsPerBlock, rel%PtrsPerBlock
				if setErr := double.set(i, j, blockNum, fs.alloc.AllocateBlock); setErr != nil {
					return setErr
				}
			default:
				return ErrFileTooLarge
			}
			logicalBlock++

			if totalSize > 0 {
				percent := int(written * 100 / totalSize)
				if percent != lastPercent {
					lastPercent = percent
					log.WithFields(logrus.Fields{
						"path":    exfsPath,
						"percent": percent,
					}).Info("progress")
				}
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("reading host file %s: %w", hostPath, readErr)
		}
	}
	ino.Size = uint32(written)

	if len(single) > 0 {
		singleBlock, allocErr := fs.alloc.AllocateBlock()
		if allocErr != nil {
			return allocErr
		}
		if err := fs.s.writePtrBlock(singleBlock, single); err != nil {
			return err
		}
		ino.IndirectSingle = singleBlock
	}

	if len(double.rowBlock) > 0 {
		outer := make([]uint32, len(double.rowBlock))
		for i, rb := range double.rowBlock {
			if err := fs.s.writePtrBlock(rb, double.rowPtrs[i]); err != nil {
				return err
			}
			outer[i] = rb
		}
		outerBlock, allocErr := fs.alloc.AllocateBlock()
		if allocErr != nil {
			return allocErr
		}
		if err := fs.s.writePtrBlock(outerBlock, outer); err != nil {
			return err
		}
		ino.IndirectDouble = outerBlock
	}

	inodeNum, err := fs.alloc.AllocateInode()
	if err != nil {
		return err
	}
	if err := fs.s.writeInode(inodeNum, &ino); err != nil {
		return err
	}

	if err := appendDirEntry(parentBlock, inodeNum, name); err != nil {
		return err
	}
	if err := fs.s.writeBlock(parentIno.Direct[0], parentBlock); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"path":  exfsPath,
		"bytes": written,
	}).Info("added")
	return nil
}

// Extract streams the file at exfsPath's contents to w.
func (fs *Filesystem) Extract(exfsPath string, w io.Writer) error {
	log := fs.log.WithField("op", "extract")

	parentPath, name, err := splitParentAndName(exfsPath)
	if err != nil {
		return err
	}
	parentNum, err := fs.resolve(parentPath)
	if err != nil {
		return err
	}
	parentIno, err := fs.s.readInode(parentNum)
	if err != nil {
		return err
	}
	parentBlock, err := fs.s.readBlock(parentIno.Direct[0])
	if err != nil {
		return err
	}
	entry, found := findDirEntry(parentBlock, name)
	if !found {
		return fmt.Errorf("%w: %q", ErrNotFound, exfsPath)
	}
	ino, err := fs.s.readInode(entry.InodeNum)
	if err != nil {
		return err
	}
	if ino.Type != TypeFile {
		return fmt.Errorf("%w: %q", ErrNotAFile, exfsPath)
	}

	remaining := int64(ino.Size)

	emit := func(blockNum uint32) error {
		if remaining <= 0 || blockNum == 0 {
			return nil
		}
		b, err := fs.s.readBlock(blockNum)
		if err != nil {
			return err
		}
		n := int64(len(b))
		if n > remaining {
			n = remaining
		}
		if _, err := w.Write(b[:n]); err != nil {
			return fmt.Errorf("writing extracted bytes: %w", err)
		}
		remaining -= n
		return nil
	}

	for _, d := range ino.Direct {
		if remaining <= 0 {
			break
		}
		if err := emit(d); err != nil {
			return err
		}
	}

	if remaining > 0 && ino.IndirectSingle != 0 {
		if err := fs.s.iterPtrBlock(ino.IndirectSingle, func(ptr uint32) bool {
			if err := emit(ptr); err != nil {
				log.WithError(err).Error("emitting single-indirect block")
				return false
			}
			return remaining > 0
		}); err != nil {
			return err
		}
	}

	if remaining > 0 && ino.IndirectDouble != 0 {
		if err := fs.s.iterPtrBlock(ino.IndirectDouble, func(outerPtr uint32) bool {
			if remaining <= 0 {
				return false
			}
			innerErr := fs.s.iterPtrBlock(outerPtr, func(ptr uint32) bool {
				if err := emit(ptr); err != nil {
					log.WithError(err).Error("emitting double-indirect leaf")
					return false
				}
				return remaining > 0
			})
			if innerErr != nil {
				log.WithError(innerErr).Error("reading double-indirect row")
				return false
			}
			return remaining > 0
		}); err != nil {
			return err
		}
	}

	if remaining > 0 {
		log.WithFields(logrus.Fields{
			"path":      exfsPath,
			"remaining": remaining,
		}).Warn("extraction incomplete: pointer graph ended before size was satisfied")
	}
	return nil
}

// Remove deletes the entry named by exfsPath, zeroing its directory
// entry, every data block its inode references, and the inode itself.
// The double-indirect tree is cleared first (each row's leaves, then the
// row block, then the outer block), then the single-indirect leaves and
// block, then the direct blocks; the inode is zeroed last. A directory is
// removed the same way whether or not it has entries: its entry block is
// zeroed, and the inodes and blocks of its children are not freed.
func (fs *Filesystem) Remove(exfsPath string) error {
	log := fs.log.WithField("op", "remove")

	parentPath, name, err := splitParentAndName(exfsPath)
	if err != nil {
		return err
	}
	parentNum, err := fs.resolve(parentPath)
	if err != nil {
		return err
	}
	parentIno, err := fs.s.readInode(parentNum)
	if err != nil {
		return err
	}
	parentBlock, err := fs.s.readBlock(parentIno.Direct[0])
	if err != nil {
		return err
	}
	entry, found := findDirEntry(parentBlock, name)
	if !found {
		return fmt.Errorf("%w: %q", ErrNotFound, exfsPath)
	}

	if !removeDirEntry(parentBlock, name) {
		return fmt.Errorf("%w: %q", ErrNotFound, exfsPath)
	}
	if err := fs.s.writeBlock(parentIno.Direct[0], parentBlock); err != nil {
		return err
	}

	ino, err := fs.s.readInode(entry.InodeNum)
	if err != nil {
		return err
	}

	freeBlock := func(num uint32) error {
		if num == 0 {
			return nil
		}
		if err := fs.s.writeBlock(num, make([]byte, BlockSize)); err != nil {
			return err
		}
		return fs.alloc.FreeBlock(num)
	}

	if ino.IndirectDouble != 0 {
		outer, err := fs.s.readPtrBlock(ino.IndirectDouble)
		if err != nil {
			return err
		}
		for _, row := range outer {
			if row == 0 {
				continue
			}
			inner, err := fs.s.readPtrBlock(row)
			if err != nil {
				return err
			}
			for _, leaf := range inner {
				if leaf == 0 {
					continue
				}
				if err := freeBlock(leaf); err != nil {
					return err
				}
			}
			if err := freeBlock(row); err != nil {
				return err
			}
		}
		if err := freeBlock(ino.IndirectDouble); err != nil {
			return err
		}
	}

	if ino.IndirectSingle != 0 {
		single, err := fs.s.readPtrBlock(ino.IndirectSingle)
		if err != nil {
			return err
		}
		for _, leaf := range single {
			if leaf == 0 {
				continue
			}
			if err := freeBlock(leaf); err != nil {
				return err
			}
		}
		if err := freeBlock(ino.IndirectSingle); err != nil {
			return err
		}
	}

	for _, d := range ino.Direct {
		if err := freeBlock(d); err != nil {
			return err
		}
	}

	if err := fs.s.writeInode(entry.InodeNum, &Inode{}); err != nil {
		return err
	}
	if err := fs.alloc.FreeInode(entry.InodeNum); err != nil {
		return err
	}

	log.WithField("path", exfsPath).Info("removed")
	return nil
}

// List writes a recursive, depth-indented tree of the archive starting
// at the root directory. A visited set sized to the maximum addressable
// inode count guards against a corrupted archive forming a cycle.
func (fs *Filesystem) List(w io.Writer) error {
	visited := make(map[uint32]bool, MaxSegments*InodesPerSegment)
	return fs.listDir(w, RootInode, 0, visited)
}

func (fs *Filesystem) listDir(w io.Writer, inodeNum uint32, depth int, visited map[uint32]bool) error {
	if visited[inodeNum] {
		return nil
	}
	visited[inodeNum] = true

	ino, err := fs.s.readInode(inodeNum)
	if err != nil {
		return err
	}
	if ino.Type != TypeDir {
		return nil
	}
	block, err := fs.s.readBlock(ino.Direct[0])
	if err != nil {
		return err
	}

	for _, e := range listDirEntries(block) {
		indent := ""
		for i := 0; i < depth; i++ {
			indent += "  "
		}
		if _, err := fmt.Fprintf(w, "%s|- %s\n", indent, e.Name); err != nil {
			return fmt.Errorf("writing list output: %w", err)
		}
		child, err := fs.s.readInode(e.InodeNum)
		if err != nil {
			return err
		}
		if child.Type == TypeDir {
			if err := fs.listDir(w, e.InodeNum, depth+1, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

// Debug writes a read-only inspection of exfsPath's inode to w: type,
// size, non-zero direct pointers, the indirect trees, and (for a
// directory) its entry list. It never mutates state.
func (fs *Filesystem) Debug(exfsPath string, w io.Writer) error {
	inodeNum, err := fs.resolve(exfsPath)
	if err != nil {
		return err
	}
	ino, err := fs.s.readInode(inodeNum)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Inode   : %d\n", inodeNum)
	fmt.Fprintf(w, "Type    : %s\n", ino.Type)
	fmt.Fprintf(w, "Size    : %d bytes\n", ino.Size)

	fmt.Fprintln(w, "Direct pointers:")
	for i, d := range ino.Direct {
		if d != 0 {
			fmt.Fprintf(w, "  [%d] = %d\n", i, d)
		}
	}

	if ino.Type == TypeFile && ino.Direct[0] != 0 {
		first, err := fs.s.readBlock(ino.Direct[0])
		if err != nil {
			return err
		}
		dumpLen := debugDumpBytes
		if int(ino.Size) < dumpLen {
			dumpLen = int(ino.Size)
		}
		if dumpLen > 0 {
			fmt.Fprintf(w, "First block (first %d bytes):\n", dumpLen)
			fmt.Fprint(w, util.DumpByteSlice(first[:dumpLen], 16, true, true, false, nil))
		}
	}

	if ino.IndirectSingle != 0 {
		fmt.Fprintf(w, "Indirect single (block %d):\n", ino.IndirectSingle)
		ptrs, err := fs.s.readPtrBlock(ino.IndirectSingle)
		if err != nil {
			return err
		}
		for i, p := range ptrs {
			if p == 0 {
				break
			}
			fmt.Fprintf(w, "  [%d] = %d\n", i, p)
		}
	}

	if ino.IndirectDouble != 0 {
		fmt.Fprintf(w, "Indirect double (block %d):\n", ino.IndirectDouble)
		outer, err := fs.s.readPtrBlock(ino.IndirectDouble)
		if err != nil {
			return err
		}
		for i, row := range outer {
			if row == 0 {
				break
			}
			fmt.Fprintf(w, "  row %d (block %d):\n", i, row)
			inner, err := fs.s.readPtrBlock(row)
			if err != nil {
				return err
			}
			for j, p := range inner {
				if p == 0 {
					break
				}
				fmt.Fprintf(w, "    [%d] = %d\n", j, p)
			}
		}
	}

	if ino.Type == TypeDir {
		block, err := fs.s.readBlock(ino.Direct[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "Entries:")
		for _, e := range listDirEntries(block) {
			fmt.Fprintf(w, "  %s -> inode %d\n", e.Name, e.InodeNum)
		}
	}

	return nil
}
