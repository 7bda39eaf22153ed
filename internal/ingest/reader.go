package ingest

// reader.go wraps the input stream so the CSV reader sees clean UTF-8 and the
// importer can report byte progress, without ever materializing the file.

import (
	"bufio"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// countingReader tracks bytes consumed from the underlying stream.
type countingReader struct {
	r     io.Reader
	bytes int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.bytes += int64(n)
	return n, err
}

// sanitizingReader replaces invalid UTF-8 bytes with '?' on the fly. A
// multi-byte rune split across Read calls is held back until its remaining
// bytes arrive, so the transform is exact in constant memory.
type sanitizingReader struct {
	br *bufio.Reader
}

func newSanitizingReader(r io.Reader) *sanitizingReader {
	return &sanitizingReader{br: bufio.NewReader(r)}
}

func (s *sanitizingReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		r, size, err := s.br.ReadRune()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}
		if n+size > len(p) {
			// Rune does not fit in this call's buffer; push it back.
			if uerr := s.br.UnreadRune(); uerr != nil {
				return n, uerr
			}
			return n, nil
		}
		n += utf8.EncodeRune(p[n:], r)
	}
	return n, nil
}

// wrapInput prepares a report stream for CSV parsing: count raw bytes, strip
// a Windows UTF-8 BOM if present, then sanitize invalid sequences.
func wrapInput(r io.Reader) (io.Reader, *countingReader) {
	counter := &countingReader{r: r}
	br := bufio.NewReader(counter)
	if head, err := br.Peek(3); err == nil &&
		head[0] == utf8BOM[0] && head[1] == utf8BOM[1] && head[2] == utf8BOM[2] {
		br.Discard(3)
	}
	return newSanitizingReader(br), counter
}
