package engine

import "encoding/binary"

// Inode is the fixed-size, one-block metadata record for a file or
// directory. Field layout on the wire is explicit and little-endian,
// never the host's in-memory struct layout.
type Inode struct {
	Size           uint32
	Type           InodeType
	Direct         [DirectBlocks]uint32
	IndirectSingle uint32
	IndirectDouble uint32
}

// on-disk byte offsets within one BlockSize-sized inode record.
const (
	inodeOffSize           = 0
	inodeOffType           = 4
	inodeOffDirect         = 6
	inodeOffIndirectSingle = inodeOffDirect + DirectBlocks*4 // 54
	inodeOffIndirectDouble = inodeOffIndirectSingle + 4      // 58
	inodeEncodedLen        = inodeOffIndirectDouble + 4      // 62, rest is padding
)

// IsFree reports whether the inode slot is unused. A free inode has
// type 0 and every other field zero.
func (i *Inode) IsFree() bool {
	return i.Type == TypeFree
}

// inodeFromBytes decodes one BlockSize-byte inode record. b must be at
// least inodeEncodedLen bytes; padding bytes are not inspected.
func inodeFromBytes(b []byte) *Inode {
	ino := &Inode{
		Size: binary.LittleEndian.Uint32(b[inodeOffSize:]),
		Type: InodeType(binary.LittleEndian.Uint16(b[inodeOffType:])),
	}
	for k := 0; k < DirectBlocks; k++ {
		ino.Direct[k] = binary.LittleEndian.Uint32(b[inodeOffDirect+k*4:])
	}
	ino.IndirectSingle = binary.LittleEndian.Uint32(b[inodeOffIndirectSingle:])
	ino.IndirectDouble = binary.LittleEndian.Uint32(b[inodeOffIndirectDouble:])
	return ino
}

// toBytes encodes the inode into a zero-padded BlockSize-byte record
// ready to write to a segment.
func (i *Inode) toBytes() []byte {
	b := make([]byte, BlockSize)
	binary.LittleEndian.PutUint32(b[inodeOffSize:], i.Size)
	binary.LittleEndian.PutUint16(b[inodeOffType:], uint16(i.Type))
	for k := 0; k < DirectBlocks; k++ {
		binary.LittleEndian.PutUint32(b[inodeOffDirect+k*4:], i.Direct[k])
	}
	binary.LittleEndian.PutUint32(b[inodeOffIndirectSingle:], i.IndirectSingle)
	binary.LittleEndian.PutUint32(b[inodeOffIndirectDouble:], i.IndirectDouble)
	return b
}
