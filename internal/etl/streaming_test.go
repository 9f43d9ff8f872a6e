package etl

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

// ===== BOM Reader Tests =====

func TestBOMSkipReader(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"with bom", "\xEF\xBB\xBFline_id,temp", "line_id,temp"},
		{"without bom", "line_id,temp", "line_id,temp"},
		{"short input", "ab", "ab"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(newBOMSkipReader(strings.NewReader(tt.in)))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBOMSkipReaderTinyBuffer(t *testing.T) {
	r := newBOMSkipReader(strings.NewReader("abcdef"))
	buf := make([]byte, 2)
	var out []byte
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
	}
	if string(out) != "abcdef" {
		t.Errorf("got %q, want abcdef", out)
	}
}

// ===== UTF-8 Sanitizer Tests =====

func TestUTF8SanitizeReader(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"clean ascii", []byte("plain,csv,data"), "plain,csv,data"},
		{"valid multibyte", []byte("münchen,æøå"), "münchen,æøå"},
		{"invalid byte", []byte{'a', 0xFF, 'b'}, "a?b"},
		{"latin1 smuggled in", []byte{'c', 0xE9, 't'}, "c?t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(newUTF8SanitizeReader(bytes.NewReader(tt.in)))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUTF8SanitizeReaderSplitRune(t *testing.T) {
	// "é" is 0xC3 0xA9; force the split across reads with a one-byte-at-a-
	// time underlying reader.
	r := newUTF8SanitizeReader(&oneByteReader{data: []byte("caf\xC3\xA9")})
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "café" {
		t.Errorf("got %q, want café", got)
	}
}

// oneByteReader yields one byte per Read call.
type oneByteReader struct {
	data []byte
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}
