package zealfs

import (
	"os"
	"time"
)

// FileInfo returns the os.FileInfo view of the entry.
func (e Entry) FileInfo() os.FileInfo {
	return entryFileInfo{entry: e}
}

type entryFileInfo struct {
	entry Entry
}

func (e entryFileInfo) Name() string {
	return e.entry.EntryName()
}

func (e entryFileInfo) Size() int64 {
	return e.entry.Size
}

// Mode is always 0777, the format stores no permissions.
func (e entryFileInfo) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir | 0777
	}
	return 0777
}

func (e entryFileInfo) ModTime() time.Time {
	return ParseDate(e.entry.Date)
}

func (e entryFileInfo) IsDir() bool {
	return e.entry.IsDir()
}

func (e entryFileInfo) Sys() interface{} {
	return e.entry
}

// rootFileInfo describes the root directory, which has no entry on disk.
type rootFileInfo struct {
	pageSize int64
}

func (r rootFileInfo) Name() string { return "/" }

// Size of a directory is one page.
func (r rootFileInfo) Size() int64 { return r.pageSize }

func (r rootFileInfo) Mode() os.FileMode { return os.ModeDir | 0777 }

func (r rootFileInfo) ModTime() time.Time { return time.Time{} }

func (r rootFileInfo) IsDir() bool { return true }

func (r rootFileInfo) Sys() interface{} { return nil }
