// File model contains the structs which match the on-disk structures of the ZealFS filesystem.

package zealfs

import (
	"bytes"
	"encoding/binary"
)

// Magic is the first byte of every ZealFS header ('Z').
const Magic = 0x5A

// Variant selects one of the two incompatible on-disk formats.
type Variant uint8

const (
	// V1 images are at most 64 KiB, use fixed 256-byte pages and chain
	// pages through the first byte of each page.
	V1 Variant = 1
	// V2 images scale up to 4 GiB, use 256 B - 64 KiB pages and chain
	// pages through a FAT stored at page 1.
	V2 Variant = 2
)

const (
	// NameMaxLen is the maximum file name length, extension included.
	NameMaxLen = 16

	// EntrySize is the on-disk size of a directory entry.
	EntrySize = 32

	flagOccupied = 1 << 7
	flagDir      = 1 << 0

	pageSizeV1 = 256
	// The first byte of a v1 data page is the next-page link.
	payloadV1 = pageSizeV1 - 1

	bitmapOffsetV1 = 4
	bitmapOffsetV2 = 7

	// v1 headers are fixed: 4 header bytes, 32 bitmap bytes, 28 reserved.
	headerSizeV1 = 64

	maxImageSizeV1 = 64 * 1024
	maxPageCode    = 8
)

type headerV1 struct {
	Magic       byte
	Version     byte
	BitmapSize  uint8
	FreePages   uint8
	PagesBitmap [32]byte
	Reserved    [28]byte
}

// headerV2 is only the fixed prefix, the bitmap of BitmapSize bytes follows it
// directly and the root entries start at the next 32-byte boundary after that.
type headerV2 struct {
	Magic        byte
	Version      byte
	BitmapSize   uint16
	FreePages    uint16
	PageSizeCode byte
}

type entryV1 struct {
	Flags     byte
	Name      [NameMaxLen]byte
	StartPage uint8
	Size      uint16
	Date      [8]byte
	Reserved  [4]byte
}

type entryV2 struct {
	Flags     byte
	Name      [NameMaxLen]byte
	StartPage uint16
	Size      uint32
	Date      [8]byte
	Reserved  byte
}

// Entry is the in-memory view of a 32-byte directory entry slot.
type Entry struct {
	Flags     byte
	Name      [NameMaxLen]byte
	StartPage int
	Size      int64
	Date      [8]byte
}

func (e Entry) IsOccupied() bool {
	return e.Flags&flagOccupied != 0
}

func (e Entry) IsDir() bool {
	return e.Flags&flagDir != 0
}

// EntryName returns the name bytes up to the first padding NUL.
func (e Entry) EntryName() string {
	if i := bytes.IndexByte(e.Name[:], 0); i >= 0 {
		return string(e.Name[:i])
	}
	return string(e.Name[:])
}

// entryRef addresses a directory entry slot without exposing raw offsets.
// Page 0 means a slot in the root region of the header page.
type entryRef struct {
	page int
	slot int
}

// geometry carries the per-variant constants fixed at mount time.
type geometry struct {
	variant   Variant
	pageSize  int
	payload   int
	pageCount int
	// v2 only. fatWidth is 0 for v1.
	fatWidth int
	fatPages int
	// Byte offset of the first root entry inside page 0.
	rootOffset int
	// Entry slots in the root region and in a full directory page.
	rootMax int
	dirMax  int
}

func alignUp(size, bound int) int {
	return (size + bound - 1) &^ (bound - 1)
}

// pageSizeFromCode translates the 4-bit header code into bytes.
func pageSizeFromCode(code byte) int {
	return 256 << code
}

func codeFromPageSize(pageSize int) byte {
	code := byte(0)
	for s := 256; s < pageSize; s <<= 1 {
		code++
	}
	return code
}

// pageSizeForDiskSize returns the recommended (smallest valid) v2 page size,
// chosen so that the FAT fits in at most two pages and the header plus bitmap
// fits in page 0.
func pageSizeForDiskSize(diskSize int64) int {
	switch {
	case diskSize <= 64*1024:
		return 256
	case diskSize <= 256*1024:
		return 512
	case diskSize <= 1024*1024:
		return 1024
	case diskSize <= 4*1024*1024:
		return 2 * 1024
	case diskSize <= 16*1024*1024:
		return 4 * 1024
	case diskSize <= 64*1024*1024:
		return 8 * 1024
	case diskSize <= 256*1024*1024:
		return 16 * 1024
	case diskSize <= 1024*1024*1024:
		return 32 * 1024
	default:
		return 64 * 1024
	}
}

// geometryV1 derives the fixed v1 layout for an image of the given size.
func geometryV1(imageSize int) geometry {
	return geometry{
		variant:    V1,
		pageSize:   pageSizeV1,
		payload:    payloadV1,
		pageCount:  imageSize / pageSizeV1,
		rootOffset: headerSizeV1,
		rootMax:    (pageSizeV1 - headerSizeV1) / EntrySize,
		dirMax:     pageSizeV1 / EntrySize,
	}
}

// geometryV2 derives the v2 layout from the page size code and bitmap size.
func geometryV2(code byte, bitmapSize int) geometry {
	pageSize := pageSizeFromCode(code)
	pageCount := bitmapSize * 8
	headerSize := alignUp(bitmapOffsetV2+bitmapSize, EntrySize)

	// Single-byte FAT entries only for the smallest images, where the
	// whole FAT then fits in one page.
	fatWidth := 2
	fatPages := 2
	if pageSize == 256 && pageCount <= 256 {
		fatWidth = 1
		fatPages = 1
	}

	return geometry{
		variant:    V2,
		pageSize:   pageSize,
		payload:    pageSize,
		pageCount:  pageCount,
		fatWidth:   fatWidth,
		fatPages:   fatPages,
		rootOffset: headerSize,
		rootMax:    (pageSize - headerSize) / EntrySize,
		dirMax:     pageSize / EntrySize,
	}
}

// pageOffset converts a page index into a byte offset in the image cache.
func (g geometry) pageOffset(page int) int {
	return page * g.pageSize
}

func (g geometry) imageSize() int {
	return g.pageCount * g.pageSize
}

// entryOffset converts an entry descriptor into a byte offset in the image
// cache. Slots on page 0 live in the root region of the header.
func (g geometry) entryOffset(ref entryRef) int {
	if ref.page == 0 {
		return g.rootOffset + ref.slot*EntrySize
	}
	return g.pageOffset(ref.page) + ref.slot*EntrySize
}

// maxSlots returns the number of entry slots of the directory page the given
// descriptor points into.
func (g geometry) maxSlots(page int) int {
	if page == 0 {
		return g.rootMax
	}
	return g.dirMax
}

// decodeEntry reads the 32-byte slot at the given cache offset.
func (g geometry) decodeEntry(cache []byte, off int) Entry {
	r := bytes.NewReader(cache[off : off+EntrySize])
	if g.variant == V1 {
		var raw entryV1
		// The reader holds exactly one packed struct, this cannot fail.
		_ = binary.Read(r, binary.LittleEndian, &raw)
		return Entry{
			Flags:     raw.Flags,
			Name:      raw.Name,
			StartPage: int(raw.StartPage),
			Size:      int64(raw.Size),
			Date:      raw.Date,
		}
	}
	var raw entryV2
	_ = binary.Read(r, binary.LittleEndian, &raw)
	return Entry{
		Flags:     raw.Flags,
		Name:      raw.Name,
		StartPage: int(raw.StartPage),
		Size:      int64(raw.Size),
		Date:      raw.Date,
	}
}

// encodeEntry writes the 32-byte slot at the given cache offset.
func (g geometry) encodeEntry(cache []byte, off int, e Entry) {
	var buf bytes.Buffer
	if g.variant == V1 {
		raw := entryV1{
			Flags:     e.Flags,
			Name:      e.Name,
			StartPage: uint8(e.StartPage),
			Size:      uint16(e.Size),
			Date:      e.Date,
		}
		_ = binary.Write(&buf, binary.LittleEndian, &raw)
	} else {
		raw := entryV2{
			Flags:     e.Flags,
			Name:      e.Name,
			StartPage: uint16(e.StartPage),
			Size:      uint32(e.Size),
			Date:      e.Date,
		}
		_ = binary.Write(&buf, binary.LittleEndian, &raw)
	}
	copy(cache[off:off+EntrySize], buf.Bytes())
}
