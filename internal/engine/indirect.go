package engine

import "encoding/binary"

// readPtrBlock reads global block num and interprets it as PtrsPerBlock
// little-endian 32-bit block-number entries. Callers stop at the first
// zero entry; entries after it are never dereferenced.
func (s *store) readPtrBlock(num uint32) ([PtrsPerBlock]uint32, error) {
	var ptrs [PtrsPerBlock]uint32
	if num == 0 {
		return ptrs, nil
	}
	b, err := s.readBlock(num)
	if err != nil {
		return ptrs, err
	}
	for i := 0; i < PtrsPerBlock; i++ {
		ptrs[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return ptrs, nil
}

// writePtrBlock writes exactly BlockSize bytes to global block num,
// encoding ptrs as PtrsPerBlock little-endian 32-bit entries.
func (s *store) writePtrBlock(num uint32, ptrs []uint32) error {
	b := make([]byte, BlockSize)
	for i, p := range ptrs {
		if i >= PtrsPerBlock {
			break
		}
		binary.LittleEndian.PutUint32(b[i*4:], p)
	}
	return s.writeBlock(num, b)
}

// iterPtrBlock calls fn for each pointer in the block at num, in order,
// stopping at the first zero entry or when fn returns false.
func (s *store) iterPtrBlock(num uint32, fn func(ptr uint32) bool) error {
	if num == 0 {
		return nil
	}
	ptrs, err := s.readPtrBlock(num)
	if err != nil {
		return err
	}
	for _, p := range ptrs {
		if p == 0 {
			break
		}
		if !fn(p) {
			break
		}
	}
	return nil
}
