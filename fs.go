package zealfs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	gopath "path"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/zeal8bit/zealfs/checkpoint"
)

// These errors may occur while mounting an image.
var (
	ErrOpenImage   = errors.New("could not open the image")
	ErrFormatImage = errors.New("could not format the image")
)

// Options configures a mount. The zero value mounts (or formats) a v2 image
// of DefaultSizeKiB without an MBR.
type Options struct {
	// Variant selects the on-disk format, V2 by default.
	Variant Variant
	// SizeKiB is the image size used when the backing file is empty and a
	// fresh image gets formatted. DefaultSizeKiB when 0.
	SizeKiB int
	// MBR wraps a freshly formatted v2 image into an MBR partition of type
	// 0x5A placed right after the boot sector.
	MBR bool
}

// DefaultSizeKiB is the size of a fresh image when Options.SizeKiB is 0.
const DefaultSizeKiB = 32

// Fs is a mounted ZealFS image. The whole image lives in a memory cache
// owned by the session and is flushed back to the backing file by Flush and
// Close. Fs implements afero.Fs.
//
// All operations must be called from a single goroutine; the engine does no
// locking.
type Fs struct {
	backing afero.File
	// Byte offset of the ZealFS partition inside the backing file.
	offset int64
	cache  []byte
	geo    geometry

	warnings []string
}

// rootRef is the descriptor convention for the synthesized root directory.
var rootRef = entryRef{page: 0, slot: -1}

var _ afero.Fs = (*Fs)(nil)

// New mounts the ZealFS image contained in backing. An empty backing file is
// formatted according to opts first; an existing image is located (through
// its MBR for v2, when present), loaded and integrity-checked.
//
// The caller keeps ownership of backing until New returns successfully;
// afterwards the Fs owns it and releases it on Close.
func New(backing afero.File, opts Options) (*Fs, error) {
	if opts.Variant == 0 {
		opts.Variant = V2
	}
	if opts.Variant != V1 && opts.Variant != V2 {
		return nil, checkpoint.Wrap(fmt.Errorf("unknown variant %d", opts.Variant), ErrUnsupported)
	}

	info, err := backing.Stat()
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrOpenImage)
	}

	fs := &Fs{backing: backing}
	if info.Size() == 0 {
		err = fs.formatNew(opts)
	} else {
		err = fs.load(opts.Variant, info.Size())
	}
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// formatNew formats a fresh image into the cache and flushes it, so that
// even an unmodified mount leaves a valid image behind.
func (fs *Fs) formatNew(opts Options) error {
	sizeKiB := opts.SizeKiB
	if sizeKiB == 0 {
		sizeKiB = DefaultSizeKiB
	}
	imageSize := int64(sizeKiB) * 1024

	if opts.MBR {
		if opts.Variant != V2 {
			return checkpoint.Wrap(fmt.Errorf("an MBR requires a v2 image"), ErrFormatImage)
		}
		// The partition starts right after the boot sector.
		fs.offset = mbrSize
		sector, err := EncodeMBR(fs.offset, imageSize)
		if err != nil {
			return checkpoint.Wrap(err, ErrFormatImage)
		}
		if _, err := fs.backing.WriteAt(sector, 0); err != nil {
			return checkpoint.Wrap(err, ErrFormatImage)
		}
	}

	fs.cache = make([]byte, imageSize)
	geo, err := format(fs.cache, opts.Variant)
	if err != nil {
		return checkpoint.Wrap(err, ErrFormatImage)
	}
	fs.geo = geo

	return fs.Flush()
}

// load reads an existing image into the cache and validates it.
func (fs *Fs) load(variant Variant, fileSize int64) error {
	size := fileSize
	if variant == V2 {
		sector := make([]byte, mbrSize)
		n, err := fs.backing.ReadAt(sector, 0)
		if err != nil && !errors.Is(err, io.EOF) {
			return checkpoint.Wrap(err, ErrOpenImage)
		}
		offset, partSize, ok := FindPartition(sector[:n], fileSize)
		if !ok {
			return checkpoint.Wrap(fmt.Errorf("no ZealFS partition in the image"), ErrCorrupted)
		}
		fs.offset = offset
		size = partSize
	}

	fs.cache = make([]byte, size)
	if n, err := fs.backing.ReadAt(fs.cache, fs.offset); err != nil && !(errors.Is(err, io.EOF) && n == len(fs.cache)) {
		return checkpoint.Wrap(err, ErrOpenImage)
	}

	geo, err := parseHeader(fs.cache, variant)
	if err != nil {
		return err
	}
	fs.geo = geo

	return fs.checkIntegrity()
}

// parseHeader decodes the header of a loaded image and derives the mount
// geometry from it.
func parseHeader(cache []byte, variant Variant) (geometry, error) {
	if len(cache) < pageSizeV1 {
		return geometry{}, checkpoint.Wrap(fmt.Errorf("image smaller than one page"), ErrCorrupted)
	}
	if cache[0] != Magic {
		return geometry{}, checkpoint.Wrap(fmt.Errorf("invalid magic byte 0x%02x", cache[0]), ErrCorrupted)
	}
	if cache[1] != byte(variant) {
		return geometry{}, checkpoint.Wrap(fmt.Errorf("image version %d does not match the mounted variant %d", cache[1], variant), ErrCorrupted)
	}

	if variant == V1 {
		var header headerV1
		_ = binary.Read(bytes.NewReader(cache[:headerSizeV1]), binary.LittleEndian, &header)
		if header.BitmapSize == 0 {
			return geometry{}, checkpoint.Wrap(fmt.Errorf("zero bitmap size"), ErrCorrupted)
		}
		return geometryV1(int(header.BitmapSize) * 8 * pageSizeV1), nil
	}

	var header headerV2
	_ = binary.Read(bytes.NewReader(cache[:bitmapOffsetV2]), binary.LittleEndian, &header)
	if header.BitmapSize == 0 {
		return geometry{}, checkpoint.Wrap(fmt.Errorf("zero bitmap size"), ErrCorrupted)
	}
	if header.PageSizeCode > maxPageCode {
		return geometry{}, checkpoint.Wrap(fmt.Errorf("invalid page size code %d", header.PageSizeCode), ErrCorrupted)
	}
	geo := geometryV2(header.PageSizeCode, int(header.BitmapSize))
	if geo.rootMax <= 0 {
		return geometry{}, checkpoint.Wrap(fmt.Errorf("header does not leave room for root entries"), ErrCorrupted)
	}
	return geo, nil
}

// format initializes a fresh image in cache: header, bitmap and the FAT
// reservation for v2.
func format(cache []byte, variant Variant) (geometry, error) {
	size := len(cache)

	if variant == V1 {
		if size > maxImageSizeV1 {
			return geometry{}, fmt.Errorf("v1 images are limited to 64 KiB, got %d bytes", size)
		}
		if size < 8*pageSizeV1 || size%(8*pageSizeV1) != 0 {
			return geometry{}, fmt.Errorf("v1 image size must be a multiple of %d bytes", 8*pageSizeV1)
		}
		geo := geometryV1(size)
		header := headerV1{
			Magic:      Magic,
			Version:    1,
			BitmapSize: uint8(size / pageSizeV1 / 8),
			FreePages:  uint8(size/pageSizeV1 - 1),
		}
		header.PagesBitmap[0] = 0x01
		var buf bytes.Buffer
		_ = binary.Write(&buf, binary.LittleEndian, &header)
		copy(cache, buf.Bytes())
		return geo, nil
	}

	if int64(size) > 4*1024*1024*1024 {
		return geometry{}, fmt.Errorf("v2 images are limited to 4 GiB, got %d bytes", size)
	}
	pageSize := pageSizeForDiskSize(int64(size))
	if size < 8*pageSize || size%(8*pageSize) != 0 {
		return geometry{}, fmt.Errorf("v2 image size must be a multiple of %d bytes", 8*pageSize)
	}
	code := codeFromPageSize(pageSize)
	bitmapSize := size / pageSize / 8
	geo := geometryV2(code, bitmapSize)
	if geo.rootMax <= 0 {
		return geometry{}, fmt.Errorf("page size %d does not leave room for root entries", pageSize)
	}

	header := headerV2{
		Magic:        Magic,
		Version:      2,
		BitmapSize:   uint16(bitmapSize),
		PageSizeCode: code,
	}
	freePages := geo.pageCount - 1 - geo.fatPages
	if freePages > 0xFFFF {
		freePages = 0xFFFF
	}
	header.FreePages = uint16(freePages)
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, &header)
	copy(cache, buf.Bytes())

	// Page 0 is the header, pages 1 (and 2) hold the FAT.
	if geo.fatPages == 1 {
		cache[bitmapOffsetV2] = 0x03
	} else {
		cache[bitmapOffsetV2] = 0x07
	}
	return geo, nil
}

// checkIntegrity validates a loaded image the way the format pass left it.
// Recoverable findings are collected as warnings, fatal ones abort the
// mount with ErrCorrupted.
func (fs *Fs) checkIntegrity() error {
	imageSize := fs.geo.imageSize()
	if imageSize > len(fs.cache) {
		return checkpoint.Wrap(
			fmt.Errorf("header claims %d bytes (%d bytes/page) but the partition only has %d",
				imageSize, fs.geo.pageSize, len(fs.cache)),
			ErrCorrupted)
	}
	if imageSize < len(fs.cache) {
		fs.warnings = append(fs.warnings,
			"image size according to the bitmap is smaller than the partition, some of it will be unreachable")
	}

	count := fs.countFreeBits()
	if count < fs.freePages() {
		fs.warnings = append(fs.warnings,
			"the number of pages marked free is smaller than the actual count, some pages may be unreachable")
	}
	if count > fs.freePages() {
		return checkpoint.Wrap(
			fmt.Errorf("%d pages marked free but the header only accounts for %d", count, fs.freePages()),
			ErrCorrupted)
	}
	return nil
}

// Warnings returns the non-fatal findings of the integrity check that ran
// at mount time.
func (fs *Fs) Warnings() []string {
	return fs.warnings
}

// Info describes the mounted image.
type Info struct {
	Variant     Variant
	PageSize    int
	PageCount   int
	BitmapSize  int
	FreePages   int
	RootEntries int
	DirEntries  int
	FATPages    int
	// Offset of the partition inside the backing file.
	Offset int64
}

func (fs *Fs) Info() Info {
	return Info{
		Variant:     fs.geo.variant,
		PageSize:    fs.geo.pageSize,
		PageCount:   fs.geo.pageCount,
		BitmapSize:  fs.bitmapSize(),
		FreePages:   fs.freePages(),
		RootEntries: fs.geo.rootMax,
		DirEntries:  fs.geo.dirMax,
		FATPages:    fs.geo.fatPages,
		Offset:      fs.offset,
	}
}

// Flush writes the cache back to the backing file at the partition offset.
func (fs *Fs) Flush() error {
	if _, err := fs.backing.WriteAt(fs.cache, fs.offset); err != nil {
		return checkpoint.From(err)
	}
	return nil
}

// Close flushes the cache and closes the backing file. The Fs must not be
// used afterwards.
func (fs *Fs) Close() error {
	if err := fs.Flush(); err != nil {
		return err
	}
	return checkpoint.From(fs.backing.Close())
}

// normalizePath brings afero-style names into the absolute, clean form the
// resolver works on.
func normalizePath(name string) string {
	return gopath.Clean("/" + strings.TrimPrefix(name, "/"))
}

// Name returns the name of this filesystem.
func (fs *Fs) Name() string {
	return "ZealFS"
}

// Stat returns the attributes of the file or directory at name.
// The root directory is synthesized: it has no entry on disk.
func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	return fs.statPath(normalizePath(name))
}

func (fs *Fs) statPath(path string) (os.FileInfo, error) {
	if path == "/" {
		return rootFileInfo{pageSize: int64(fs.geo.pageSize)}, nil
	}
	res := fs.browsePath(path, false)
	if !res.found {
		return nil, checkpoint.Wrap(syscall.ENOENT, ErrNotExist)
	}
	return entryFileInfo{entry: fs.entryAt(res.entry)}, nil
}

// Open opens a file or directory for reading.
func (fs *Fs) Open(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens the file at name. O_CREATE creates it, O_EXCL fails on an
// existing target, O_TRUNC discards the previous content (the format can
// only truncate to zero) and O_APPEND positions every write at the end.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	path := normalizePath(name)
	writable := flag&(os.O_WRONLY|os.O_RDWR) != 0

	if path == "/" {
		if writable {
			return nil, checkpoint.Wrap(syscall.EISDIR, ErrIsDirectory)
		}
		return fs.rootFile(path), nil
	}

	res := fs.browsePath(path, false)
	if !res.found {
		if flag&os.O_CREATE == 0 {
			return nil, checkpoint.Wrap(syscall.ENOENT, ErrNotExist)
		}
		ref, err := fs.createEntry(path, false)
		if err != nil {
			return nil, err
		}
		return fs.entryFile(path, ref, writable, flag&os.O_APPEND != 0), nil
	}

	if flag&os.O_CREATE != 0 && flag&os.O_EXCL != 0 {
		return nil, checkpoint.Wrap(syscall.EEXIST, ErrExist)
	}

	entry := fs.entryAt(res.entry)
	if entry.IsDir() {
		if writable {
			return nil, checkpoint.Wrap(syscall.EISDIR, ErrIsDirectory)
		}
		return fs.dirFile(path, res.entry, entry.StartPage), nil
	}

	if flag&os.O_TRUNC != 0 && writable {
		if err := fs.truncateEntry(res.entry, 0); err != nil {
			return nil, err
		}
	}
	return fs.entryFile(path, res.entry, writable, flag&os.O_APPEND != 0), nil
}

// Create creates or truncates the file at name, open for reading and writing.
func (fs *Fs) Create(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0)
}

// Mkdir creates a directory. perm is ignored, the format advertises 0777.
func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	path := normalizePath(name)
	if path == "/" {
		return checkpoint.Wrap(syscall.EEXIST, ErrExist)
	}
	_, err := fs.createEntry(path, true)
	return err
}

// MkdirAll creates a directory and all missing parents.
func (fs *Fs) MkdirAll(path string, perm os.FileMode) error {
	full := normalizePath(path)
	if full == "/" {
		return nil
	}
	components := strings.Split(full[1:], "/")
	current := ""
	for _, name := range components {
		current += "/" + name
		res := fs.browsePath(current, false)
		if res.found {
			if !fs.entryAt(res.entry).IsDir() {
				return checkpoint.Wrap(syscall.ENOTDIR, ErrNotDirectory)
			}
			continue
		}
		if _, err := fs.createEntry(current, true); err != nil {
			return err
		}
	}
	return nil
}

// Remove removes a file or an empty directory.
func (fs *Fs) Remove(name string) error {
	path := normalizePath(name)
	if path == "/" {
		return checkpoint.Wrap(syscall.EACCES, ErrPermission)
	}
	res := fs.browsePath(path, false)
	if !res.found {
		return checkpoint.Wrap(syscall.ENOENT, ErrNotExist)
	}
	if fs.entryAt(res.entry).IsDir() {
		return fs.rmdirResolved(res.entry)
	}
	return fs.unlinkResolved(res.entry)
}

// Unlink removes a file. It refuses directories.
func (fs *Fs) Unlink(name string) error {
	path := normalizePath(name)
	res := fs.browsePath(path, false)
	if !res.found {
		return checkpoint.Wrap(syscall.ENOENT, ErrNotExist)
	}
	if fs.entryAt(res.entry).IsDir() {
		return checkpoint.Wrap(syscall.EISDIR, ErrIsDirectory)
	}
	return fs.unlinkResolved(res.entry)
}

// Rmdir removes an empty directory. The root cannot be removed.
func (fs *Fs) Rmdir(name string) error {
	path := normalizePath(name)
	if path == "/" {
		return checkpoint.Wrap(syscall.EACCES, ErrPermission)
	}
	res := fs.browsePath(path, false)
	if !res.found {
		return checkpoint.Wrap(syscall.ENOENT, ErrNotExist)
	}
	if !fs.entryAt(res.entry).IsDir() {
		return checkpoint.Wrap(syscall.ENOTDIR, ErrNotDirectory)
	}
	return fs.rmdirResolved(res.entry)
}

// RemoveAll removes path and any children it contains. Removing the root
// empties the image but keeps it mounted.
func (fs *Fs) RemoveAll(path string) error {
	full := normalizePath(path)
	if full == "/" {
		for _, e := range fs.listEntries(0) {
			if err := fs.RemoveAll("/" + e.EntryName()); err != nil {
				return err
			}
		}
		return nil
	}

	res := fs.browsePath(full, false)
	if !res.found {
		// Like os.RemoveAll, a missing target is not an error.
		return nil
	}
	entry := fs.entryAt(res.entry)
	if entry.IsDir() {
		for _, e := range fs.listEntries(entry.StartPage) {
			if err := fs.RemoveAll(full + "/" + e.EntryName()); err != nil {
				return err
			}
		}
		// The children are gone, re-resolve in case their removal moved
		// slots around.
		res = fs.browsePath(full, false)
		if !res.found {
			return nil
		}
		return fs.rmdirResolved(res.entry)
	}
	return fs.unlinkResolved(res.entry)
}

// Rename moves or renames a file or directory.
func (fs *Fs) Rename(oldname, newname string) error {
	return fs.RenameWithFlags(oldname, newname, RenameDefault)
}

// RenameFlag alters the behavior of RenameWithFlags.
type RenameFlag uint

const (
	// RenameDefault replaces an existing target.
	RenameDefault RenameFlag = iota
	// RenameNoReplace fails with ErrExist when the target exists.
	RenameNoReplace
	// RenameExchange would swap both entries atomically; the engine does
	// not support it and fails with ErrUnsupported.
	RenameExchange
)

// RenameWithFlags renames from to to. The content chain is never touched:
// only directory entries move. A cross-directory move needs a free slot in
// the destination directory; the slot of a replaced target is reused.
func (fs *Fs) RenameWithFlags(from, to string, flags RenameFlag) error {
	fromPath := normalizePath(from)
	toPath := normalizePath(to)
	if fromPath == "/" || toPath == "/" {
		return checkpoint.Wrap(syscall.ENOENT, ErrNotExist)
	}
	if fromPath == toPath {
		return nil
	}

	fres := fs.browsePath(fromPath, false)
	tres := fs.browsePath(toPath, true)

	if !fres.found || (flags == RenameExchange && !tres.found) {
		return checkpoint.Wrap(syscall.ENOENT, ErrNotExist)
	}
	if flags == RenameNoReplace && tres.found {
		return checkpoint.Wrap(syscall.EEXIST, ErrExist)
	}
	if flags == RenameExchange {
		return checkpoint.Wrap(syscall.ENOSYS, ErrUnsupported)
	}

	newName := gopath.Base(toPath)
	if len(newName) > NameMaxLen {
		return checkpoint.Wrap(syscall.ENAMETOOLONG, ErrNameTooLong)
	}
	if !tres.parentOK {
		// The destination directory itself does not exist.
		return checkpoint.Wrap(syscall.ENOENT, ErrNotExist)
	}

	// If the destination already exists, remove it and reuse its slot.
	freeSlot := tres.free
	freeFound := tres.freeFound
	if tres.found {
		if fs.entryAt(tres.entry).IsDir() {
			return checkpoint.Wrap(syscall.EISDIR, ErrIsDirectory)
		}
		if err := fs.unlinkResolved(tres.entry); err != nil {
			return err
		}
		freeSlot = tres.entry
		freeFound = true
	}

	// Rename the source in place first.
	entry := fs.entryAt(fres.entry)
	entry.Name = [NameMaxLen]byte{}
	copy(entry.Name[:], newName)
	fs.putEntry(fres.entry, entry)

	if gopath.Dir(fromPath) == gopath.Dir(toPath) {
		return nil
	}

	// Not in the same directory, move the entry if we have a free slot.
	if !freeFound {
		return checkpoint.Wrap(syscall.ENFILE, ErrDirFull)
	}
	fs.putEntry(freeSlot, entry)
	fs.clearEntrySlot(fres.entry)
	return nil
}

// Chmod is accepted and ignored: every entry is advertised as 0777.
func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	_, err := fs.statPath(normalizePath(name))
	return err
}

// Chown is not supported, the format stores no ownership.
func (fs *Fs) Chown(name string, uid, gid int) error {
	return checkpoint.Wrap(syscall.ENOSYS, ErrUnsupported)
}

// Chtimes rewrites the entry timestamp. The format stores a single BCD
// timestamp, which mtime lands in; atime is discarded.
func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	path := normalizePath(name)
	if path == "/" {
		return checkpoint.Wrap(syscall.EACCES, ErrPermission)
	}
	res := fs.browsePath(path, false)
	if !res.found {
		return checkpoint.Wrap(syscall.ENOENT, ErrNotExist)
	}
	entry := fs.entryAt(res.entry)
	entry.Date = EncodeDate(mtime)
	fs.putEntry(res.entry, entry)
	return nil
}

// createEntry claims a directory slot and a content page for a new file or
// directory. v2 directory chains, the root included, grow by one linked page
// when every slot is taken.
func (fs *Fs) createEntry(path string, isDir bool) (entryRef, error) {
	name := gopath.Base(path)
	if len(name) > NameMaxLen {
		return entryRef{}, checkpoint.Wrap(syscall.ENAMETOOLONG, ErrNameTooLong)
	}

	res := fs.browsePath(path, true)
	if res.found {
		return entryRef{}, checkpoint.Wrap(syscall.EEXIST, ErrExist)
	}
	if !res.parentOK {
		return entryRef{}, checkpoint.Wrap(syscall.ENOENT, ErrNotExist)
	}

	slot := res.free
	if !res.freeFound {
		if fs.geo.variant == V1 {
			return entryRef{}, checkpoint.Wrap(syscall.ENFILE, ErrDirFull)
		}
		grown, err := fs.growDirectory(res.parent)
		if err != nil {
			return entryRef{}, checkpoint.Wrap(syscall.ENFILE, ErrDirFull)
		}
		slot = grown
	}

	page := fs.allocatePage()
	if page == 0 {
		return entryRef{}, checkpoint.Wrap(syscall.ENOSPC, ErrNoSpace)
	}
	fs.zeroPage(page)

	entry := Entry{
		Flags:     flagOccupied,
		StartPage: page,
		Date:      EncodeDate(time.Now()),
	}
	copy(entry.Name[:], name)
	if isDir {
		entry.Flags |= flagDir
		entry.Size = int64(fs.geo.pageSize)
	}
	fs.putEntry(slot, entry)
	return slot, nil
}

// unlinkResolved frees the whole content chain of a file entry and clears
// its flags byte, releasing the slot.
func (fs *Fs) unlinkResolved(ref entryRef) error {
	entry := fs.entryAt(ref)
	fs.freeChain(entry.StartPage)
	entry.Flags = 0
	fs.putEntry(ref, entry)
	return nil
}

// rmdirResolved removes an empty directory: every slot across the whole
// chain must be free.
func (fs *Fs) rmdirResolved(ref entryRef) error {
	entry := fs.entryAt(ref)
	for _, page := range fs.dirPages(entry.StartPage) {
		for slot := 0; slot < fs.geo.maxSlots(page); slot++ {
			if fs.entryAt(entryRef{page: page, slot: slot}).IsOccupied() {
				return checkpoint.Wrap(syscall.ENOTEMPTY, ErrNotEmpty)
			}
		}
	}
	if fs.geo.variant == V1 {
		// v1 directory pages carry no in-band next pointer, the page is
		// entry slots from the first byte on.
		fs.freePage(entry.StartPage)
	} else {
		fs.freeChain(entry.StartPage)
	}
	entry.Flags = 0
	fs.putEntry(ref, entry)
	return nil
}

// readFileAt copies up to size bytes of a file's content starting at
// offset, walking the page chain.
func (fs *Fs) readFileAt(ref entryRef, offset int64, size int) ([]byte, error) {
	entry := fs.entryAt(ref)
	if offset >= entry.Size {
		return nil, nil
	}
	if int64(size) > entry.Size-offset {
		size = int(entry.Size - offset)
	}

	payload := fs.geo.payload
	page, err := fs.walk(entry.StartPage, int(offset)/payload)
	if err != nil {
		return nil, err
	}
	offsetInPage := int(offset) % payload

	out := make([]byte, 0, size)
	for size > 0 {
		count := payload - offsetInPage
		if count > size {
			count = size
		}
		start := fs.payloadOffset(page, offsetInPage)
		out = append(out, fs.cache[start:start+count]...)
		size -= count
		offsetInPage = 0
		if size > 0 {
			if page, err = fs.walk(page, 1); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// writeFileAt deposits p into a file's chain starting at offset, allocating
// and linking pages as the write extends past the tail. The entry size
// becomes max(old size, offset+written). On allocator exhaustion the bytes
// written so far stay in place and ErrNoSpace is returned.
func (fs *Fs) writeFileAt(ref entryRef, offset int64, p []byte) (int, error) {
	entry := fs.entryAt(ref)
	if entry.IsDir() {
		return 0, checkpoint.Wrap(syscall.EISDIR, ErrIsDirectory)
	}

	payload := fs.geo.payload
	offsetInPage := int(offset) % payload
	remainingInPage := payload - offsetInPage

	// Enough free pages for the whole write?
	if len(p) > fs.freePages()*payload+remainingInPage {
		return 0, checkpoint.Wrap(syscall.EFBIG, ErrTooLarge)
	}

	written := 0
	finish := func(err error) (int, error) {
		if newSize := offset + int64(written); newSize > entry.Size {
			entry.Size = newSize
			fs.putEntry(ref, entry)
		}
		return written, err
	}

	page, err := fs.walkExtend(entry.StartPage, int(offset)/payload)
	if err != nil {
		return finish(err)
	}

	for written < len(p) {
		count := payload - offsetInPage
		if count > len(p)-written {
			count = len(p) - written
		}
		start := fs.payloadOffset(page, offsetInPage)
		copy(fs.cache[start:start+count], p[written:written+count])
		written += count
		offsetInPage = 0

		if written == len(p) {
			break
		}
		next := fs.next(page)
		if next == 0 {
			if next, err = fs.appendPage(page); err != nil {
				return finish(err)
			}
		}
		page = next
	}
	return finish(nil)
}

// truncateEntry discards a file's content. The format has no partial
// truncation: only size 0 (and the current size, a no-op) are expressible.
func (fs *Fs) truncateEntry(ref entryRef, size int64) error {
	entry := fs.entryAt(ref)
	if entry.IsDir() {
		return checkpoint.Wrap(syscall.EISDIR, ErrIsDirectory)
	}
	if size == entry.Size {
		return nil
	}
	if size != 0 {
		return checkpoint.Wrap(syscall.ENOSYS, ErrUnsupported)
	}
	// Keep the first content page, release the rest of the chain.
	fs.freeChain(fs.next(entry.StartPage))
	fs.setNext(entry.StartPage, 0)
	entry.Size = 0
	fs.putEntry(ref, entry)
	return nil
}

// statEntry returns the attributes behind a descriptor. The root descriptor
// yields the synthesized root attributes.
func (fs *Fs) statEntry(ref entryRef) (os.FileInfo, error) {
	if ref == rootRef {
		return rootFileInfo{pageSize: int64(fs.geo.pageSize)}, nil
	}
	return entryFileInfo{entry: fs.entryAt(ref)}, nil
}

// readDirInfo lists the occupied entries of the directory starting at the
// given page (0 for the root region), across the whole chain.
func (fs *Fs) readDirInfo(start int) ([]os.FileInfo, error) {
	entries := fs.listEntries(start)
	infos := make([]os.FileInfo, len(entries))
	for i, e := range entries {
		infos[i] = e.FileInfo()
	}
	return infos, nil
}

func (fs *Fs) sync() error {
	return fs.Flush()
}

func (fs *Fs) rootFile(path string) *File {
	return &File{
		fs:          fs,
		path:        path,
		ref:         rootRef,
		isDirectory: true,
		dirStart:    0,
	}
}

func (fs *Fs) dirFile(path string, ref entryRef, start int) *File {
	return &File{
		fs:          fs,
		path:        path,
		ref:         ref,
		isDirectory: true,
		dirStart:    start,
	}
}

func (fs *Fs) entryFile(path string, ref entryRef, writable, appendMode bool) *File {
	return &File{
		fs:         fs,
		path:       path,
		ref:        ref,
		writable:   writable,
		appendMode: appendMode,
	}
}
