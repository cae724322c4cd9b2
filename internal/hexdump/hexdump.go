// Package hexdump renders raw bytes as a 16-bytes-per-line hex listing, for
// the CLI's `dump` diagnostic verb.
package hexdump

import (
	"fmt"
	"strings"
)

// Dump formats up to limit bytes of data as a hex listing, 16 bytes per
// line, each line prefixed with its offset. A limit <= 0 dumps all of data.
func Dump(data []byte, limit int) string {
	if limit > 0 && limit < len(data) {
		data = data[:limit]
	}

	var b strings.Builder
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&b, "%08x  ", off)
		for _, c := range data[off:end] {
			fmt.Fprintf(&b, "%02x ", c)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
