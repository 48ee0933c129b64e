package zealfs

import (
	"errors"
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/spf13/afero"
)

func testInfo(size int64) os.FileInfo {
	return entryFileInfo{entry: Entry{Flags: flagOccupied, Size: size}}
}

func TestFileRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ref := entryRef{page: 3, slot: 1}
	mockFs := NewMockzealFileFs(ctrl)
	// Once for the EOF check, once for the seek afterwards.
	mockFs.EXPECT().statEntry(ref).Return(testInfo(5), nil).Times(2)
	mockFs.EXPECT().readFileAt(ref, int64(0), 5).Return([]byte("Hello"), nil)

	f := &File{fs: mockFs, path: "/a.txt", ref: ref}
	buffer := make([]byte, 5)
	n, err := f.Read(buffer)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != 5 {
		t.Errorf("Read() = %v, want 5", n)
	}
	if string(buffer) != "Hello" {
		t.Errorf("Read() buffer = %q, want %q", buffer, "Hello")
	}
	if f.offset != 5 {
		t.Errorf("offset = %v, want 5", f.offset)
	}
}

func TestFileReadAtEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ref := entryRef{page: 3, slot: 1}
	mockFs := NewMockzealFileFs(ctrl)
	mockFs.EXPECT().statEntry(ref).Return(testInfo(5), nil)

	f := &File{fs: mockFs, ref: ref, offset: 5}
	if _, err := f.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("Read() at the end error = %v, want io.EOF", err)
	}
}

func TestFileReadDirectory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := &File{fs: NewMockzealFileFs(ctrl), isDirectory: true}
	if _, err := f.Read(make([]byte, 1)); !errors.Is(err, ErrIsDirectory) {
		t.Errorf("Read() on a directory error = %v, want ErrIsDirectory", err)
	}
}

func TestFileReadAt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ref := entryRef{page: 3, slot: 1}
	mockFs := NewMockzealFileFs(ctrl)
	mockFs.EXPECT().statEntry(ref).Return(testInfo(10), nil)
	mockFs.EXPECT().readFileAt(ref, int64(6), 4).Return([]byte("tail"), nil)

	f := &File{fs: mockFs, ref: ref}
	buffer := make([]byte, 4)
	n, err := f.ReadAt(buffer, 6)
	if err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if n != 4 || string(buffer) != "tail" {
		t.Errorf("ReadAt() = %v %q, want 4 %q", n, buffer, "tail")
	}
	if f.offset != 0 {
		t.Errorf("ReadAt() moved the offset to %v", f.offset)
	}
}

func TestFileSeek(t *testing.T) {
	tests := []struct {
		name    string
		start   int64
		offset  int64
		whence  int
		want    int64
		wantErr error
	}{
		{name: "seek start", start: 3, offset: 10, whence: io.SeekStart, want: 10},
		{name: "seek current", start: 3, offset: 10, whence: io.SeekCurrent, want: 13},
		{name: "seek end", start: 3, offset: -10, whence: io.SeekEnd, want: 90},
		{name: "invalid whence", start: 0, offset: 0, whence: 42, wantErr: syscall.EINVAL},
		{name: "below zero", start: 0, offset: -1, whence: io.SeekStart, wantErr: afero.ErrOutOfRange},
		{name: "beyond the end", start: 0, offset: 101, whence: io.SeekStart, wantErr: afero.ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ref := entryRef{page: 2, slot: 0}
			mockFs := NewMockzealFileFs(ctrl)
			mockFs.EXPECT().statEntry(ref).Return(testInfo(100), nil).AnyTimes()

			f := &File{fs: mockFs, ref: ref, offset: tt.start}
			got, err := f.Seek(tt.offset, tt.whence)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Seek() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Seek() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Seek() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ref := entryRef{page: 4, slot: 2}
	mockFs := NewMockzealFileFs(ctrl)
	mockFs.EXPECT().writeFileAt(ref, int64(0), []byte("abc")).Return(3, nil)

	f := &File{fs: mockFs, ref: ref, writable: true}
	n, err := f.Write([]byte("abc"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Write() = %v, want 3", n)
	}
	if f.offset != 3 {
		t.Errorf("offset = %v, want 3", f.offset)
	}
}

func TestFileWriteAppend(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ref := entryRef{page: 4, slot: 2}
	mockFs := NewMockzealFileFs(ctrl)
	mockFs.EXPECT().statEntry(ref).Return(testInfo(7), nil)
	mockFs.EXPECT().writeFileAt(ref, int64(7), []byte("xy")).Return(2, nil)

	f := &File{fs: mockFs, ref: ref, writable: true, appendMode: true}
	if _, err := f.Write([]byte("xy")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if f.offset != 9 {
		t.Errorf("offset = %v, want 9", f.offset)
	}
}

func TestFileWriteReadOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := &File{fs: NewMockzealFileFs(ctrl)}
	if _, err := f.Write([]byte("x")); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Write() error = %v, want ErrReadOnly", err)
	}
	if _, err := f.WriteAt([]byte("x"), 0); !errors.Is(err, ErrReadOnly) {
		t.Errorf("WriteAt() error = %v, want ErrReadOnly", err)
	}
	if err := f.Truncate(0); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Truncate() error = %v, want ErrReadOnly", err)
	}
}

func TestFileReaddirPagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	content := []os.FileInfo{testInfo(1), testInfo(2), testInfo(3)}
	mockFs := NewMockzealFileFs(ctrl)
	mockFs.EXPECT().readDirInfo(7).Return(content, nil).Times(2)

	f := &File{fs: mockFs, isDirectory: true, dirStart: 7}

	first, err := f.Readdir(2)
	if err != nil {
		t.Fatalf("Readdir(2) error = %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("Readdir(2) = %v entries, want 2", len(first))
	}

	second, err := f.Readdir(2)
	if err != io.EOF {
		t.Fatalf("Readdir(2) at the end error = %v, want io.EOF", err)
	}
	if len(second) != 1 {
		t.Fatalf("second Readdir(2) = %v entries, want 1", len(second))
	}
}

func TestFileReaddirAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	content := []os.FileInfo{testInfo(1), testInfo(2)}
	mockFs := NewMockzealFileFs(ctrl)
	mockFs.EXPECT().readDirInfo(0).Return(content, nil)

	f := &File{fs: mockFs, isDirectory: true}
	all, err := f.Readdir(-1)
	if err != nil {
		t.Fatalf("Readdir(-1) error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Readdir(-1) = %v entries, want 2", len(all))
	}
}

func TestFileReaddirOnFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := &File{fs: NewMockzealFileFs(ctrl)}
	if _, err := f.Readdir(-1); !errors.Is(err, syscall.ENOTDIR) {
		t.Errorf("Readdir() on a file error = %v, want ENOTDIR", err)
	}
}

func TestFileSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockFs := NewMockzealFileFs(ctrl)
	mockFs.EXPECT().sync().Return(nil)

	f := &File{fs: mockFs}
	if err := f.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}

func TestFileTruncate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ref := entryRef{page: 4, slot: 2}
	mockFs := NewMockzealFileFs(ctrl)
	mockFs.EXPECT().truncateEntry(ref, int64(0)).Return(nil)

	f := &File{fs: mockFs, ref: ref, writable: true}
	if err := f.Truncate(0); err != nil {
		t.Errorf("Truncate() error = %v", err)
	}
}

func TestFileClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := &File{fs: NewMockzealFileFs(ctrl), path: "/x", writable: true}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if f.fs != nil || f.path != "" || f.writable {
		t.Error("Close() did not reset the handle")
	}
}
