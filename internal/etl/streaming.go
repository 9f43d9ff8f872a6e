package etl

// streaming.go wraps raw CSV file readers so the parser downstream only
// ever sees clean UTF-8: the byte-order mark Windows exports prepend is
// dropped, and invalid UTF-8 sequences are replaced on the fly without
// buffering the whole file.

import (
	"io"
	"unicode/utf8"
)

// bomSkipReader removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) from the
// stream, if present. Only the first read inspects the prefix.
type bomSkipReader struct {
	r       io.Reader
	checked bool
}

func newBOMSkipReader(r io.Reader) *bomSkipReader {
	return &bomSkipReader{r: r}
}

func (b *bomSkipReader) Read(p []byte) (int, error) {
	if b.checked {
		return b.r.Read(p)
	}
	b.checked = true

	var prefix [3]byte
	n, err := io.ReadFull(b.r, prefix[:])
	if n == 3 && prefix[0] == 0xEF && prefix[1] == 0xBB && prefix[2] == 0xBF {
		return b.r.Read(p)
	}

	// Not a BOM: hand back whatever was read before continuing.
	copied := copy(p, prefix[:n])
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if copied < n {
		// Caller's buffer is tiny; stash the rest by chaining readers.
		b.r = io.MultiReader(newByteReader(prefix[copied:n]), b.r)
		return copied, nil
	}
	return copied, err
}

// byteReader serves a small fixed buffer; io.MultiReader needs a Reader.
type byteReader struct {
	buf []byte
}

func newByteReader(b []byte) *byteReader {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &byteReader{buf: cp}
}

func (r *byteReader) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// utf8SanitizeReader replaces invalid UTF-8 bytes with '?' as data flows
// through. Multi-byte runes split across read boundaries are held back
// until the next read completes them.
type utf8SanitizeReader struct {
	r       io.Reader
	pending []byte
}

func newUTF8SanitizeReader(r io.Reader) *utf8SanitizeReader {
	return &utf8SanitizeReader{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8SanitizeReader) Read(p []byte) (int, error) {
	if len(p) < utf8.UTFMax {
		return 0, io.ErrShortBuffer
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if allASCII(p[:n]) {
		return n, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

// allASCII is the fast path; most manufacturing CSV data is plain ASCII.
func allASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place, replacing invalid bytes with '?'.
// Returns the number of bytes to surface; an incomplete trailing rune is
// moved to pending unless the stream already ended.
func (s *utf8SanitizeReader) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && incompleteTail(data[read:]) {
				s.pending = append(s.pending, data[read:]...)
				return write
			}
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// incompleteTail reports whether data is the start of a multi-byte rune
// cut off by the read boundary.
func incompleteTail(data []byte) bool {
	if len(data) >= utf8.UTFMax {
		return false
	}
	lead := data[0]
	var need int
	switch {
	case lead&0xE0 == 0xC0:
		need = 2
	case lead&0xF0 == 0xE0:
		need = 3
	case lead&0xF8 == 0xF0:
		need = 4
	default:
		return false
	}
	if len(data) >= need {
		return false
	}
	for _, b := range data[1:] {
		if b&0xC0 != 0x80 {
			return false
		}
	}
	return true
}
