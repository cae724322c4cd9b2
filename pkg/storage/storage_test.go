package storage

import (
	"testing"
)

func TestDiskBackend(t *testing.T) {
	tmpFile := t.TempDir() + "/test.cb"

	backend, err := OpenDisk(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open disk backend: %v", err)
	}
	defer backend.Close()

	data := []byte("Hello, tinydb!")
	n, err := backend.WriteAt(data, 0)
	if err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if n != len(data) {
		t.Fatalf("Expected to write %d bytes, wrote %d", len(data), n)
	}

	buf := make([]byte, len(data))
	n, err = backend.ReadAt(buf, 0)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if n != len(data) {
		t.Fatalf("Expected to read %d bytes, read %d", len(data), n)
	}
	if string(buf) != string(data) {
		t.Fatalf("Expected %q, got %q", string(data), string(buf))
	}

	if err := backend.Sync(); err != nil {
		t.Fatalf("Failed to sync: %v", err)
	}
}

func TestMemoryBackend(t *testing.T) {
	backend := NewMemory()
	defer backend.Close()

	data := []byte("Hello, tinydb!")
	n, err := backend.WriteAt(data, 0)
	if err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if n != len(data) {
		t.Fatalf("Expected to write %d bytes, wrote %d", len(data), n)
	}

	buf := make([]byte, len(data))
	n, err = backend.ReadAt(buf, 0)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if n != len(data) {
		t.Fatalf("Expected to read %d bytes, read %d", len(data), n)
	}
	if string(buf) != string(data) {
		t.Fatalf("Expected %q, got %q", string(data), string(buf))
	}
}

func TestNewPageIsEmptyAndSynthetic(t *testing.T) {
	page := NewPage(7)

	if page.ID != 7 {
		t.Errorf("Expected ID 7, got %d", page.ID)
	}
	if !page.IsEmpty() {
		t.Error("Fresh page should be empty")
	}
	if len(page.Data) != PayloadCapacity {
		t.Errorf("Expected payload length %d, got %d", PayloadCapacity, len(page.Data))
	}
}

func TestPageRoundTrip(t *testing.T) {
	page := NewPage(3)
	entry := []byte("some record bytes")
	copy(page.Data, entry)
	page.Used = uint32(len(entry))
	page.LSN = 42

	buf := page.ToBytes()
	if len(buf) != PageSize {
		t.Fatalf("Expected serialized size %d, got %d", PageSize, len(buf))
	}

	decoded, err := PageFromBytes(buf)
	if err != nil {
		t.Fatalf("Failed to decode page: %v", err)
	}
	if decoded.ID != page.ID {
		t.Errorf("Expected ID %d, got %d", page.ID, decoded.ID)
	}
	if decoded.LSN != page.LSN {
		t.Errorf("Expected LSN %d, got %d", page.LSN, decoded.LSN)
	}
	if decoded.Used != page.Used {
		t.Errorf("Expected used %d, got %d", page.Used, decoded.Used)
	}
	if string(decoded.Data[:len(entry)]) != string(entry) {
		t.Errorf("Expected payload %q, got %q", entry, decoded.Data[:len(entry)])
	}
}

func TestPageFromBytesDetectsBadMagic(t *testing.T) {
	page := NewPage(1)
	buf := page.ToBytes()
	buf[0] ^= 0xFF

	_, err := PageFromBytes(buf)
	if err == nil {
		t.Fatal("expected bad magic error")
	}
	corrupt, ok := err.(*PageCorruptError)
	if !ok {
		t.Fatalf("expected *PageCorruptError, got %T", err)
	}
	if corrupt.Reason != "bad magic" {
		t.Errorf("expected bad magic reason, got %q", corrupt.Reason)
	}
}

func TestPageFromBytesDetectsCRCMismatch(t *testing.T) {
	page := NewPage(1)
	copy(page.Data, []byte("payload"))
	page.Used = 7
	buf := page.ToBytes()

	// Flip a payload byte without touching the magic.
	buf[HeaderSize] ^= 0xFF

	_, err := PageFromBytes(buf)
	if err == nil {
		t.Fatal("expected crc mismatch error")
	}
	corrupt, ok := err.(*PageCorruptError)
	if !ok {
		t.Fatalf("expected *PageCorruptError, got %T", err)
	}
	if corrupt.Reason != "crc mismatch" {
		t.Errorf("expected crc mismatch reason, got %q", corrupt.Reason)
	}
	if corrupt.PageID != 1 {
		t.Errorf("expected page id 1, got %d", corrupt.PageID)
	}
}

func TestPagerReadPastEndOfFileReturnsSyntheticPage(t *testing.T) {
	path := t.TempDir() + "/data.db"
	pager, err := OpenPager(path)
	if err != nil {
		t.Fatalf("open pager: %v", err)
	}
	defer pager.Close()

	page, err := pager.ReadPage(5)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if !page.IsEmpty() {
		t.Error("expected synthetic empty page")
	}
	if page.ID != 5 {
		t.Errorf("expected id 5, got %d", page.ID)
	}
}

func TestPagerWriteThenReadRoundTrips(t *testing.T) {
	path := t.TempDir() + "/data.db"
	pager, err := OpenPager(path)
	if err != nil {
		t.Fatalf("open pager: %v", err)
	}
	defer pager.Close()

	page := NewPage(0)
	copy(page.Data, []byte("hello"))
	page.Used = 5
	page.LSN = 1

	if err := pager.WritePage(page); err != nil {
		t.Fatalf("write page: %v", err)
	}
	if err := pager.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	got, err := pager.ReadPage(0)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if string(got.Data[:5]) != "hello" {
		t.Fatalf("expected hello, got %q", got.Data[:5])
	}
	if got.LSN != 1 {
		t.Fatalf("expected lsn 1, got %d", got.LSN)
	}
}

func TestPagerOnMemoryBackend(t *testing.T) {
	backend := NewMemory()
	pager := NewPagerOn(backend)
	defer pager.Close()

	page := NewPage(2)
	copy(page.Data, []byte("in-memory"))
	page.Used = 9
	if err := pager.WritePage(page); err != nil {
		t.Fatalf("write page: %v", err)
	}

	got, err := pager.ReadPage(2)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if string(got.Data[:9]) != "in-memory" {
		t.Fatalf("expected in-memory, got %q", got.Data[:9])
	}
}

func TestPagerDetectsBitFlip(t *testing.T) {
	path := t.TempDir() + "/data.db"
	pager, err := OpenPager(path)
	if err != nil {
		t.Fatalf("open pager: %v", err)
	}
	defer pager.Close()

	page := NewPage(0)
	copy(page.Data, []byte("hello"))
	page.Used = 5
	if err := pager.WritePage(page); err != nil {
		t.Fatalf("write page: %v", err)
	}

	backend, err := OpenDisk(path)
	if err != nil {
		t.Fatalf("reopen backend: %v", err)
	}
	defer backend.Close()
	b := []byte{0}
	if _, err := backend.ReadAt(b, 100); err != nil {
		t.Fatalf("readat: %v", err)
	}
	b[0] ^= 0x01
	if _, err := backend.WriteAt(b, 100); err != nil {
		t.Fatalf("writeat: %v", err)
	}

	_, err = pager.ReadPage(0)
	if err == nil {
		t.Fatal("expected crc error after bit flip")
	}
	if _, ok := err.(*PageCorruptError); !ok {
		t.Fatalf("expected *PageCorruptError, got %T", err)
	}
}
