package storage

import (
	"fmt"
)

// Pager performs typed, fixed-size page I/O against a single backend file.
// It is stateless beyond the open file handle: there is no page cache, so
// callers read-modify-write and must serialize concurrent access themselves.
type Pager struct {
	backend Backend
}

// OpenPager opens (creating if absent) the data file at path.
func OpenPager(path string) (*Pager, error) {
	backend, err := OpenDisk(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open pager: %w", err)
	}
	return &Pager{backend: backend}, nil
}

// NewPagerOn wraps an existing backend (e.g. an in-memory one for tests).
func NewPagerOn(backend Backend) *Pager {
	return &Pager{backend: backend}
}

// ReadPage reads the page at id. A read past the end of the file returns a
// synthetic empty page rather than an error.
func (p *Pager) ReadPage(id uint64) (*Page, error) {
	offset := int64(id) * int64(PageSize)
	buf := make([]byte, PageSize)

	n, err := p.backend.ReadAt(buf, offset)
	if n == 0 {
		return NewPage(id), nil
	}
	if n != PageSize {
		return nil, &PageCorruptError{PageID: id, Reason: "short read"}
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read page %d: %w", id, err)
	}

	return PageFromBytes(buf)
}

// WritePage serializes and writes the full page. It does not fsync; call
// Sync separately once the caller's durability point has been reached.
func (p *Pager) WritePage(page *Page) error {
	offset := int64(page.ID) * int64(PageSize)
	buf := page.ToBytes()
	if _, err := p.backend.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("storage: write page %d: %w", page.ID, err)
	}
	return nil
}

// Sync flushes the data file to stable storage.
func (p *Pager) Sync() error {
	return p.backend.Sync()
}

// Close closes the underlying backend.
func (p *Pager) Close() error {
	return p.backend.Close()
}
