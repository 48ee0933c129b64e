package zealfs

import (
	"strings"
)

// resolution is the outcome of a path walk. entry is only meaningful when
// found is set, free only when freeFound is set. parent is the start page of
// the directory holding the last path component (0 for the root region) and
// is only meaningful when parentOK is set.
type resolution struct {
	entry     entryRef
	found     bool
	free      entryRef
	freeFound bool
	parent    int
	parentOK  bool
}

// dirPages returns the pages of a directory in chain order. A start page of
// 0 designates the root region in the header page. v1 directories are a
// single page; v2 directories, the root included, may continue through the
// FAT. The page count bounds the walk so a corrupted chain cannot loop.
func (fs *Fs) dirPages(start int) []int {
	pages := []int{start}
	if fs.geo.variant == V1 {
		return pages
	}
	page := start
	for i := 0; i < fs.geo.pageCount; i++ {
		page = fs.next(page)
		if page == 0 {
			break
		}
		pages = append(pages, page)
	}
	return pages
}

func (fs *Fs) entryAt(ref entryRef) Entry {
	return fs.geo.decodeEntry(fs.cache, fs.geo.entryOffset(ref))
}

func (fs *Fs) putEntry(ref entryRef, e Entry) {
	fs.geo.encodeEntry(fs.cache, fs.geo.entryOffset(ref), e)
}

// clearEntrySlot zeroes a whole 32-byte slot.
func (fs *Fs) clearEntrySlot(ref entryRef) {
	off := fs.geo.entryOffset(ref)
	for i := off; i < off+EntrySize; i++ {
		fs.cache[i] = 0
	}
}

// browsePath walks an absolute path and returns the entry descriptor of the
// leaf when it exists. The path must already be normalized and must not be
// "/" itself. With wantFree set, the first unoccupied slot encountered in
// the terminal directory is captured for the caller, which is how create and
// rename claim their slot.
//
// Path components longer than NameMaxLen bytes and files in an interior
// position both terminate the walk as not found.
func (fs *Fs) browsePath(path string, wantFree bool) resolution {
	components := strings.Split(strings.TrimPrefix(path, "/"), "/")

	var res resolution
	dirStart := 0
	for ci, name := range components {
		last := ci == len(components)-1
		if len(name) > NameMaxLen || name == "" {
			return res
		}
		if last {
			res.parent = dirStart
			res.parentOK = true
		}

		matched := false
	pages:
		for _, page := range fs.dirPages(dirStart) {
			for slot := 0; slot < fs.geo.maxSlots(page); slot++ {
				ref := entryRef{page: page, slot: slot}
				e := fs.entryAt(ref)
				if !e.IsOccupied() {
					if last && wantFree && !res.freeFound {
						res.free = ref
						res.freeFound = true
					}
					continue
				}
				if e.EntryName() != name {
					continue
				}
				if last {
					res.entry = ref
					res.found = true
					return res
				}
				if !e.IsDir() {
					// A file cannot be an interior path component.
					return res
				}
				dirStart = e.StartPage
				matched = true
				break pages
			}
		}
		if last || !matched {
			return res
		}
	}
	return res
}

// listEntries collects every occupied entry of a directory, in slot order
// across the whole chain.
func (fs *Fs) listEntries(start int) []Entry {
	var entries []Entry
	for _, page := range fs.dirPages(start) {
		for slot := 0; slot < fs.geo.maxSlots(page); slot++ {
			e := fs.entryAt(entryRef{page: page, slot: slot})
			if e.IsOccupied() {
				entries = append(entries, e)
			}
		}
	}
	return entries
}

// growDirectory appends a zeroed page to a directory chain and returns the
// descriptor of its first slot. Only valid for v2.
func (fs *Fs) growDirectory(start int) (entryRef, error) {
	pages := fs.dirPages(start)
	tail := pages[len(pages)-1]
	page, err := fs.appendPage(tail)
	if err != nil {
		return entryRef{}, err
	}
	return entryRef{page: page, slot: 0}, nil
}
