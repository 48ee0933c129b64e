package zealfs

import (
	"encoding/binary"
	"math/bits"
)

// The page bitmap lives inside the header: bit n of byte m is 1 iff page
// m*8+n is allocated. Page 0 holds the header itself and is always set.
// The redundant free_pages header field is kept in sync by every
// allocation and release.

func (fs *Fs) bitmap() []byte {
	if fs.geo.variant == V1 {
		return fs.cache[bitmapOffsetV1 : bitmapOffsetV1+fs.bitmapSize()]
	}
	return fs.cache[bitmapOffsetV2 : bitmapOffsetV2+fs.bitmapSize()]
}

func (fs *Fs) bitmapSize() int {
	if fs.geo.variant == V1 {
		return int(fs.cache[2])
	}
	return int(binary.LittleEndian.Uint16(fs.cache[2:4]))
}

func (fs *Fs) freePages() int {
	if fs.geo.variant == V1 {
		return int(fs.cache[3])
	}
	return int(binary.LittleEndian.Uint16(fs.cache[4:6]))
}

func (fs *Fs) setFreePages(count int) {
	if fs.geo.variant == V1 {
		fs.cache[3] = byte(count)
		return
	}
	// The header field is 16 bit, saturate instead of wrapping.
	if count > 0xFFFF {
		count = 0xFFFF
	}
	binary.LittleEndian.PutUint16(fs.cache[4:6], uint16(count))
}

// allocatePage claims the first free page in the bitmap and returns its
// index. It returns 0 when the bitmap is saturated: page 0 holds the header,
// so it is never a valid result.
func (fs *Fs) allocatePage() int {
	bitmap := fs.bitmap()
	for i, value := range bitmap {
		if value == 0xFF {
			continue
		}
		bit := bits.TrailingZeros8(^value)
		bitmap[i] |= 1 << bit
		fs.setFreePages(fs.freePages() - 1)
		return i*8 + bit
	}
	return 0
}

// freePage releases a page in the bitmap. Page 0 must never be freed.
func (fs *Fs) freePage(page int) {
	if page == 0 {
		panic("zealfs: page 0 cannot be freed")
	}
	fs.bitmap()[page/8] &^= 1 << (page % 8)
	fs.setFreePages(fs.freePages() + 1)
}

func (fs *Fs) pageAllocated(page int) bool {
	return fs.bitmap()[page/8]&(1<<(page%8)) != 0
}

// countFreeBits counts the zero bits of the whole bitmap, which must equal
// the free_pages header field on a consistent image.
func (fs *Fs) countFreeBits() int {
	count := 0
	for _, value := range fs.bitmap() {
		count += 8 - bits.OnesCount8(value)
	}
	return count
}
