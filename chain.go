package zealfs

import (
	"encoding/binary"

	"github.com/zeal8bit/zealfs/checkpoint"
)

// Page chaining differs between the two variants: v1 stores the next page
// index in the first byte of each data page (leaving 255 payload bytes),
// v2 keeps a FAT starting at page 1 and uses the full page as payload.
// A next page of 0 marks the tail of a chain in both variants.

// next returns the page following the given one in its chain, or 0 at the
// tail.
func (fs *Fs) next(page int) int {
	if fs.geo.variant == V1 {
		return int(fs.cache[fs.geo.pageOffset(page)])
	}
	off := fs.fatOffset(page)
	if fs.geo.fatWidth == 1 {
		return int(fs.cache[off])
	}
	return int(binary.LittleEndian.Uint16(fs.cache[off : off+2]))
}

// setNext links page to next, or terminates the chain when next is 0.
func (fs *Fs) setNext(page, next int) {
	if fs.geo.variant == V1 {
		fs.cache[fs.geo.pageOffset(page)] = byte(next)
		return
	}
	off := fs.fatOffset(page)
	if fs.geo.fatWidth == 1 {
		fs.cache[off] = byte(next)
		return
	}
	binary.LittleEndian.PutUint16(fs.cache[off:off+2], uint16(next))
}

// fatOffset returns the cache offset of a v2 FAT entry. The FAT is an array
// of page links indexed by page number, stored from page 1 on.
func (fs *Fs) fatOffset(page int) int {
	return fs.geo.pageSize + page*fs.geo.fatWidth
}

// payloadOffset returns the cache offset of the payload byte at in-page
// offset off. v1 payload starts after the in-band next byte.
func (fs *Fs) payloadOffset(page, off int) int {
	if fs.geo.variant == V1 {
		return fs.geo.pageOffset(page) + 1 + off
	}
	return fs.geo.pageOffset(page) + off
}

// walk follows steps links from start. The chain must be long enough.
func (fs *Fs) walk(start, steps int) (int, error) {
	page := start
	for ; steps > 0; steps-- {
		page = fs.next(page)
		if page == 0 {
			return 0, checkpoint.From(ErrCorrupted)
		}
	}
	return page, nil
}

// walkExtend follows steps links from start and appends zeroed pages
// whenever the chain ends early, so that a write starting at an exact page
// boundary finds its page. Fails with ErrNoSpace on allocator exhaustion.
func (fs *Fs) walkExtend(start, steps int) (int, error) {
	page := start
	for ; steps > 0; steps-- {
		next := fs.next(page)
		if next == 0 {
			var err error
			next, err = fs.appendPage(page)
			if err != nil {
				return 0, err
			}
		}
		page = next
	}
	return page, nil
}

// appendPage allocates a zeroed page and links it behind the given one.
func (fs *Fs) appendPage(page int) (int, error) {
	next := fs.allocatePage()
	if next == 0 {
		return 0, checkpoint.From(ErrNoSpace)
	}
	fs.zeroPage(next)
	fs.setNext(page, next)
	return next, nil
}

// freeChain releases every page of a chain and clears the links, so that a
// reused page never carries a stale next pointer.
func (fs *Fs) freeChain(start int) {
	page := start
	for page != 0 {
		next := fs.next(page)
		fs.setNext(page, 0)
		fs.freePage(page)
		page = next
	}
}

func (fs *Fs) zeroPage(page int) {
	off := fs.geo.pageOffset(page)
	for i := off; i < off+fs.geo.pageSize; i++ {
		fs.cache[i] = 0
	}
}
