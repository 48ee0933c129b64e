package zealfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/afero"
	"github.com/zeal8bit/zealfs/checkpoint"
)

// These errors may occur while processing a file.
var (
	ErrReadFile  = errors.New("could not read file completely")
	ErrWriteFile = errors.New("could not write file completely")
	ErrSeekFile  = errors.New("could not seek inside of the file")
	ErrReadDir   = errors.New("could not read the directory")
)

// zealFileFs provides all methods needed from a mounted image for File.
// It mainly exists to be able to mock the Fs in tests.
// Generated mock using mockgen:
//  mockgen -source=file.go -destination=file_mock.go -package zealfs
type zealFileFs interface {
	readFileAt(ref entryRef, offset int64, size int) ([]byte, error)
	writeFileAt(ref entryRef, offset int64, p []byte) (int, error)
	truncateEntry(ref entryRef, size int64) error
	statEntry(ref entryRef) (os.FileInfo, error)
	readDirInfo(start int) ([]os.FileInfo, error)
	sync() error
}

// File is an open handle onto a directory entry of a mounted image. There is
// no per-open state on disk: the handle carries the entry descriptor and a
// cursor. File implements afero.File.
type File struct {
	fs   zealFileFs
	path string
	ref  entryRef

	isDirectory bool
	// First page of the directory chain, 0 for the root region.
	dirStart int

	writable   bool
	appendMode bool

	offset int64
}

func (f *File) Close() error {
	f.fs = nil
	f.path = ""
	f.ref = entryRef{}
	f.isDirectory = false
	f.dirStart = 0
	f.writable = false
	f.appendMode = false
	f.offset = 0

	return nil
}

// size returns the current entry size. Unlike a cached stat it stays correct
// after writes through this or any other handle.
func (f *File) size() (int64, error) {
	info, err := f.fs.statEntry(f.ref)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *File) Read(p []byte) (n int, err error) {
	if f.isDirectory {
		return 0, checkpoint.Wrap(syscall.EISDIR, ErrIsDirectory)
	}
	if p == nil {
		return 0, nil
	}

	size, err := f.size()
	if err != nil {
		return 0, checkpoint.Wrap(err, ErrReadFile)
	}
	// Reading a file if the size has been already reached, makes no sense.
	if size <= f.offset {
		return 0, io.EOF
	}

	data, err := f.fs.readFileAt(f.ref, f.offset, len(p))
	if data != nil {
		copy(p, data)
	}

	// Seek even if an error occurred, errors from reading are used even if seek also errors.
	_, seekErr := f.Seek(int64(len(data)), io.SeekCurrent)

	if err != nil {
		return len(data), checkpoint.Wrap(err, ErrReadFile)
	}
	if seekErr != nil {
		return len(data), checkpoint.Wrap(seekErr, ErrReadFile)
	}

	return len(data), nil
}

func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if f.isDirectory {
		return 0, checkpoint.Wrap(syscall.EISDIR, ErrIsDirectory)
	}
	if p == nil {
		return 0, nil
	}

	size, err := f.size()
	if err != nil {
		return 0, checkpoint.Wrap(err, ErrReadFile)
	}
	// Reading over the end makes no sense.
	if size <= off {
		return 0, io.EOF
	}

	data, err := f.fs.readFileAt(f.ref, off, len(p))
	if data != nil {
		copy(p, data)
	}

	if err != nil {
		return len(data), checkpoint.Wrap(err, ErrReadFile)
	}
	if len(data) < len(p) {
		return len(data), io.EOF
	}
	return len(data), nil
}

// Seek jumps to a specific offset in the file. This affects all Read and
// Write operations except ReadAt and WriteAt.
// May return a syscall.EINVAL error if the whence value is invalid.
// May return an afero.ErrOutOfRange error if the offset is out of range.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	size, err := f.size()
	if err != nil {
		return 0, checkpoint.Wrap(err, ErrSeekFile)
	}

	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset = f.offset + offset
	case io.SeekEnd:
		offset = size + offset
	default:
		return 0, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	if offset < 0 || offset > size {
		return 0, checkpoint.Wrap(afero.ErrOutOfRange, fmt.Errorf("%w, offset: %v, whence: %v", ErrSeekFile, offset, whence))
	}

	f.offset = offset
	return offset, nil
}

func (f *File) Write(p []byte) (n int, err error) {
	if !f.writable {
		return 0, checkpoint.Wrap(syscall.EBADF, ErrReadOnly)
	}
	if f.appendMode {
		size, err := f.size()
		if err != nil {
			return 0, checkpoint.Wrap(err, ErrWriteFile)
		}
		f.offset = size
	}

	n, err = f.fs.writeFileAt(f.ref, f.offset, p)
	f.offset += int64(n)
	if err != nil {
		return n, checkpoint.Wrap(err, ErrWriteFile)
	}
	return n, nil
}

func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	if !f.writable {
		return 0, checkpoint.Wrap(syscall.EBADF, ErrReadOnly)
	}

	n, err = f.fs.writeFileAt(f.ref, off, p)
	if err != nil {
		return n, checkpoint.Wrap(err, ErrWriteFile)
	}
	return n, nil
}

func (f *File) Name() string {
	return f.path
}

// Readdir reads the contents of the directory, across every page of its
// chain. May return syscall.ENOTDIR if the current File is no directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if !f.isDirectory {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	content, err := f.fs.readDirInfo(f.dirStart)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	end := len(content)

	if int64(len(content)) < f.offset+int64(count) {
		count = len(content) - int(f.offset)
		err = io.EOF
	}

	if count > 0 {
		end = int(f.offset) + count
	}

	content = content[f.offset:end]

	if count > 0 {
		f.offset += int64(count)
	} else {
		f.offset = int64(end)
	}

	return content, err
}

func (f *File) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)
	if err != nil && err != io.EOF {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, err
}

func (f *File) Stat() (os.FileInfo, error) {
	return f.fs.statEntry(f.ref)
}

// Sync flushes the whole image cache to the backing file.
func (f *File) Sync() error {
	return f.fs.sync()
}

// Truncate discards the file content. The format can only express size 0.
func (f *File) Truncate(size int64) error {
	if !f.writable {
		return checkpoint.Wrap(syscall.EBADF, ErrReadOnly)
	}
	return f.fs.truncateEntry(f.ref, size)
}

func (f *File) WriteString(s string) (ret int, err error) {
	return f.Write([]byte(s))
}
