package engine

import "testing"

func TestAppendAndFindDirEntry(t *testing.T) {
	block := make([]byte, BlockSize)

	if err := appendDirEntry(block, 5, "hello.txt"); err != nil {
		t.Fatalf("appendDirEntry: %v", err)
	}
	if err := appendDirEntry(block, 6, "world.bin"); err != nil {
		t.Fatalf("appendDirEntry: %v", err)
	}

	entries := listDirEntries(block)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	switch {
	case entries[0].InodeNum != 5 || entries[0].Name != "hello.txt":
		t.Errorf("entries[0] = %+v", entries[0])
	case entries[1].InodeNum != 6 || entries[1].Name != "world.bin":
		t.Errorf("entries[1] = %+v", entries[1])
	}

	e, found := findDirEntry(block, "world.bin")
	if !found || e.InodeNum != 6 {
		t.Fatalf("findDirEntry(world.bin) = %+v, %v", e, found)
	}

	if _, found := findDirEntry(block, "missing"); found {
		t.Fatalf("findDirEntry(missing) unexpectedly found")
	}
}

func TestAppendDirEntryTooLong(t *testing.T) {
	block := make([]byte, BlockSize)
	name := make([]byte, MaxNameLen+1)
	for i := range name {
		name[i] = 'a'
	}
	if err := appendDirEntry(block, 1, string(name)); err == nil {
		t.Fatalf("expected error for name exceeding MaxNameLen")
	}
}

func TestAppendDirEntryBlockFull(t *testing.T) {
	block := make([]byte, BlockSize)
	name := make([]byte, MaxNameLen)
	for i := range name {
		name[i] = 'a'
	}
	var err error
	count := 0
	for {
		err = appendDirEntry(block, uint32(count+1), string(name))
		if err != nil {
			break
		}
		count++
	}
	if count == 0 {
		t.Fatalf("expected at least one entry to fit")
	}
	if err == nil {
		t.Fatalf("expected block-full error eventually")
	}
}

// TestRemoveDirEntryDoesNotCompact asserts the documented latent bug is
// preserved: removing an earlier entry hides every entry that followed
// it in the same block, since iteration stops at the first zero record.
func TestRemoveDirEntryDoesNotCompact(t *testing.T) {
	block := make([]byte, BlockSize)
	if err := appendDirEntry(block, 1, "a"); err != nil {
		t.Fatalf("appendDirEntry a: %v", err)
	}
	if err := appendDirEntry(block, 2, "b"); err != nil {
		t.Fatalf("appendDirEntry b: %v", err)
	}
	if err := appendDirEntry(block, 3, "c"); err != nil {
		t.Fatalf("appendDirEntry c: %v", err)
	}

	if !removeDirEntry(block, "a") {
		t.Fatalf("removeDirEntry(a) = false, want true")
	}

	entries := listDirEntries(block)
	if len(entries) != 0 {
		t.Fatalf("iteration after removing the first entry should see none, got %+v", entries)
	}
}

func TestRemoveDirEntryNotFound(t *testing.T) {
	block := make([]byte, BlockSize)
	if err := appendDirEntry(block, 1, "a"); err != nil {
		t.Fatalf("appendDirEntry: %v", err)
	}
	if removeDirEntry(block, "nope") {
		t.Fatalf("removeDirEntry should report false for a missing name")
	}
}
