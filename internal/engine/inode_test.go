package engine

import "testing"

func TestInodeRoundTrip(t *testing.T) {
	ino := &Inode{
		Size:           49153,
		Type:           TypeFile,
		IndirectSingle: 77,
		IndirectDouble: 0,
	}
	for i := range ino.Direct {
		ino.Direct[i] = uint32(i + 1)
	}

	b := ino.toBytes()
	if len(b) != BlockSize {
		t.Fatalf("toBytes length = %d, want %d", len(b), BlockSize)
	}

	got := inodeFromBytes(b)
	switch {
	case got.Size != ino.Size:
		t.Errorf("Size = %d, want %d", got.Size, ino.Size)
	case got.Type != ino.Type:
		t.Errorf("Type = %v, want %v", got.Type, ino.Type)
	case got.IndirectSingle != ino.IndirectSingle:
		t.Errorf("IndirectSingle = %d, want %d", got.IndirectSingle, ino.IndirectSingle)
	case got.IndirectDouble != ino.IndirectDouble:
		t.Errorf("IndirectDouble = %d, want %d", got.IndirectDouble, ino.IndirectDouble)
	}
	for i := range ino.Direct {
		if got.Direct[i] != ino.Direct[i] {
			t.Errorf("Direct[%d] = %d, want %d", i, got.Direct[i], ino.Direct[i])
		}
	}
}

func TestInodeFreeIsZero(t *testing.T) {
	ino := &Inode{}
	if !ino.IsFree() {
		t.Fatalf("zero-value inode should be free")
	}
	b := ino.toBytes()
	for i, c := range b {
		if c != 0 {
			t.Fatalf("free inode encoding has non-zero byte at offset %d", i)
		}
	}
}

func TestInodeTypeString(t *testing.T) {
	cases := []struct {
		typ  InodeType
		want string
	}{
		{TypeFree, "Free"},
		{TypeFile, "File"},
		{TypeDir, "Directory"},
		{InodeType(99), "Unknown"},
	}
	for _, c := range cases {
		if got := c.typ.String(); got != c.want {
			t.Errorf("InodeType(%d).String() = %q, want %q", c.typ, got, c.want)
		}
	}
}
