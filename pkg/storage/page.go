package storage

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

const (
	// PageSize is the fixed size of every page on disk.
	PageSize = 8192
	// HeaderSize is the size of the fixed page header.
	HeaderSize = 32
	// PayloadCapacity is the number of bytes available to records inside a page.
	PayloadCapacity = PageSize - HeaderSize

	// Magic identifies a valid page. Stored little-endian at offset 0.
	Magic uint32 = 0xDEADBEEF
)

// Header field offsets, per the on-disk layout:
//
//	0   4   magic
//	4   8   page id
//	12  8   page lsn
//	20  4   used
//	24  4   crc32
//	28  4   reserved (zero)
//	32  8160 payload
const (
	magicOff = 0
	idOff    = magicOff + 4
	lsnOff   = idOff + 8
	usedOff  = lsnOff + 8
	crcOff   = usedOff + 4
	// reserved occupies [crcOff+4 : HeaderSize) and is excluded from the CRC.
)

// PageCorruptError reports a page that failed its integrity check.
type PageCorruptError struct {
	PageID uint64
	Reason string
}

func (e *PageCorruptError) Error() string {
	return fmt.Sprintf("storage: page %d corrupt: %s", e.PageID, e.Reason)
}

// Page is one fixed-size block of the data file.
type Page struct {
	ID   uint64
	LSN  uint64
	Used uint32
	Data []byte // len == PayloadCapacity
}

// NewPage returns a fresh, empty page with the given id.
func NewPage(id uint64) *Page {
	return &Page{
		ID:   id,
		LSN:  0,
		Used: 0,
		Data: make([]byte, PayloadCapacity),
	}
}

// ToBytes serializes the page to a PageSize-byte buffer, recomputing the CRC
// from the page's current contents.
func (p *Page) ToBytes() []byte {
	if len(p.Data) != PayloadCapacity {
		panic(fmt.Sprintf("storage: page data length mismatch: %d != %d", len(p.Data), PayloadCapacity))
	}

	buf := make([]byte, PageSize)
	binary.LittleEndian.PutUint32(buf[magicOff:], Magic)
	binary.LittleEndian.PutUint64(buf[idOff:], p.ID)
	binary.LittleEndian.PutUint64(buf[lsnOff:], p.LSN)
	binary.LittleEndian.PutUint32(buf[usedOff:], p.Used)
	copy(buf[HeaderSize:], p.Data)
	// crcOff..crcOff+4 and the reserved pad stay zero until the CRC below.

	crc := pageChecksum(buf)
	binary.LittleEndian.PutUint32(buf[crcOff:], crc)
	return buf
}

// pageChecksum computes the CRC over the header bytes preceding the CRC
// field, concatenated with the payload region. The reserved pad between the
// CRC field and the payload is excluded.
func pageChecksum(buf []byte) uint32 {
	sum := crc32.NewIEEE()
	sum.Write(buf[:crcOff])
	sum.Write(buf[HeaderSize:PageSize])
	return sum.Sum32()
}

// PageFromBytes decodes and validates a PageSize-byte buffer read from disk.
func PageFromBytes(buf []byte) (*Page, error) {
	if len(buf) != PageSize {
		panic(fmt.Sprintf("storage: page buffer length mismatch: %d != %d", len(buf), PageSize))
	}

	id := binary.LittleEndian.Uint64(buf[idOff:])

	magic := binary.LittleEndian.Uint32(buf[magicOff:])
	if magic != Magic {
		return nil, &PageCorruptError{PageID: id, Reason: "bad magic"}
	}

	storedCRC := binary.LittleEndian.Uint32(buf[crcOff:])
	if calc := pageChecksum(buf); calc != storedCRC {
		return nil, &PageCorruptError{PageID: id, Reason: "crc mismatch"}
	}

	data := make([]byte, PayloadCapacity)
	copy(data, buf[HeaderSize:])

	return &Page{
		ID:   id,
		LSN:  binary.LittleEndian.Uint64(buf[lsnOff:]),
		Used: binary.LittleEndian.Uint32(buf[usedOff:]),
		Data: data,
	}, nil
}

// IsEmpty reports whether the page has never been written to: the stopping
// condition for the open-time index rebuild scan.
func (p *Page) IsEmpty() bool {
	return p.Used == 0 && p.LSN == 0
}
