package engine

import "errors"

// Lookup errors: reported to the caller, the archive is left unchanged.
var (
	ErrNotFound      = errors.New("path not found")
	ErrNotADirectory = errors.New("path component is not a directory")
	ErrNotAFile      = errors.New("path does not refer to a file")
	ErrAlreadyExists = errors.New("path already exists")
	ErrEmptyName     = errors.New("path is missing a filename component")
)

// Allocation errors: the operation that triggered them aborts; whatever
// was already written may be orphaned.
var (
	ErrNoFreeInode = errors.New("no free inode available")
	ErrNoFreeBlock = errors.New("no free data block available")
)

// Capacity errors: fatal. Callers in cmd/exfs2 log and exit; engine code
// never recovers from these internally.
var (
	ErrFileTooLarge    = errors.New("file too large: triple indirection is not supported")
	ErrTooManySegments = errors.New("maximum number of segments reached")
	ErrPathTooDeep     = errors.New("path exceeds maximum depth")
	ErrNameTooLong     = errors.New("filename exceeds maximum length")
)

// ErrInvalidAddress signals a global block or inode number that does not
// resolve to an existing segment. This is a programming error with no
// recovery; it is exported only so tests can assert on it, never meant
// to be handled by CLI callers.
var ErrInvalidAddress = errors.New("invalid segment address")
