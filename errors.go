package zealfs

import (
	"errors"
)

// These errors classify every failure of an engine operation. Most of them
// are returned wrapped together with the matching syscall errno through the
// checkpoint package, so callers can test for either with errors.Is.
// ErrCorrupted, and ErrNoSpace when a chain runs out of pages during a write,
// carry no errno.
var (
	// ErrNotExist is returned when path resolution fails.
	ErrNotExist = errors.New("file or directory does not exist")
	// ErrExist is returned when creating something that already exists.
	ErrExist = errors.New("file or directory already exists")
	// ErrIsDirectory is returned for file operations on a directory.
	ErrIsDirectory = errors.New("target is a directory")
	// ErrNotDirectory is returned for directory operations on a file.
	ErrNotDirectory = errors.New("target is not a directory")
	// ErrNotEmpty is returned when removing a non-empty directory.
	ErrNotEmpty = errors.New("directory is not empty")
	// ErrNameTooLong is returned for basenames longer than NameMaxLen bytes.
	ErrNameTooLong = errors.New("name is longer than 16 bytes")
	// ErrDirFull is returned when the terminal directory has no free
	// entry slot and cannot be grown.
	ErrDirFull = errors.New("no free directory entry")
	// ErrNoSpace is returned when the page bitmap is saturated.
	ErrNoSpace = errors.New("no free page left")
	// ErrTooLarge is returned for writes that cannot fit in the free pages.
	ErrTooLarge = errors.New("write does not fit in the remaining space")
	// ErrUnsupported is returned for operations the format cannot express.
	ErrUnsupported = errors.New("operation not supported")
	// ErrCorrupted is returned when a loaded image fails validation.
	ErrCorrupted = errors.New("image is corrupted")
	// ErrPermission is returned when removing the root directory.
	ErrPermission = errors.New("operation not permitted")
	// ErrReadOnly is returned for writes through a read-only handle.
	ErrReadOnly = errors.New("file handle is read-only")
)
