// Package csv streams a delimited text file as ingestion rows.
//
// The first line is the header. Each following record becomes a
// *storage.Row keyed by header name, in header order. Records that cannot be
// parsed, or whose width differs from the header, are yielded as errors and
// the stream continues, so the ingestion pipeline counts them as failed rows.
// Input is decoded from a legacy single-byte encoding when asked and never
// buffered whole.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"unicode"

	"dbaccess/internal/storage"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const utf8BOM = "\uFEFF"

// Options configures a Reader. The zero value reads comma separated UTF-8
// with headers used verbatim (trimmed).
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune
	// TrimSpace trims leading and trailing white space from cells.
	TrimSpace bool
	// LazyQuotes relaxes quote handling, see encoding/csv.
	LazyQuotes bool
	// Encoding names the input charset: utf-8 (default), windows-1250,
	// windows-1252, iso-8859-1 or iso-8859-2.
	Encoding string
	// HeaderMap renames source headers (after trimming) to column names.
	HeaderMap map[string]string
	// FoldHeaders turns unmapped headers into lowercase ASCII identifiers:
	// "Datum Změny" becomes "datum_zmeny".
	FoldHeaders bool
	// KeepEmpty yields empty cells as "" instead of nil.
	KeepEmpty bool
}

var encodings = map[string]encoding.Encoding{
	"windows-1250": charmap.Windows1250,
	"cp1250":       charmap.Windows1250,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-2":   charmap.ISO8859_2,
	"latin2":       charmap.ISO8859_2,
}

// SupportedEncoding reports whether name is accepted as Options.Encoding.
func SupportedEncoding(name string) bool {
	_, err := decoder(name)
	return err == nil
}

// decoder returns nil for UTF-8.
func decoder(name string) (encoding.Encoding, error) {
	e := strings.ToLower(strings.TrimSpace(name))
	if e == "" || e == "utf-8" || e == "utf8" {
		return nil, nil
	}
	enc, ok := encodings[e]
	if !ok {
		return nil, errors.WithHint(
			errors.Newf("csv: unsupported encoding %q", name),
			"use utf-8, windows-1250, windows-1252, iso-8859-1 or iso-8859-2")
	}
	return enc, nil
}

// Reader yields the records of one CSV input. It is single use and not safe
// for concurrent use.
type Reader struct {
	cr     *csv.Reader
	closer io.Closer
	header []string
	opt    Options
	used   bool
}

// Open opens path and reads its header.
func Open(path string, opt Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "csv: open")
	}
	adviseSequential(f)

	r, err := FromReadCloser(f, opt)
	if err != nil {
		return nil, errors.Wrapf(err, "csv: %s", path)
	}
	return r, nil
}

// FromReadCloser reads the header from rc. Closing the Reader closes rc, and
// rc is closed when the header cannot be read.
func FromReadCloser(rc io.ReadCloser, opt Options) (*Reader, error) {
	r, err := NewReader(rc, opt)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	r.closer = rc
	return r, nil
}

// NewReader wraps src and reads the header line. Closing the returned Reader
// does not close src.
func NewReader(src io.Reader, opt Options) (*Reader, error) {
	enc, err := decoder(opt.Encoding)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		src = transform.NewReader(src, enc.NewDecoder())
	}

	cr := csv.NewReader(src)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	// Width is checked against the header per record so a bad line is
	// reported instead of ending the stream.
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	h, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("csv: missing header line")
	}
	if err != nil {
		return nil, errors.Wrap(err, "csv: read header")
	}
	header, err := headers(h, opt)
	if err != nil {
		return nil, err
	}
	return &Reader{cr: cr, header: header, opt: opt}, nil
}

// Header returns the column names rows are keyed by.
func (r *Reader) Header() []string { return r.header }

// Close releases the underlying input when the Reader was built by Open or
// FromReadCloser.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil
	return c.Close()
}

// Rows yields one row per record. A malformed record yields a nil row and an
// error naming its line; iteration continues after it. A failing read of the
// underlying input ends the sequence after yielding that error.
func (r *Reader) Rows() iter.Seq2[*storage.Row, error] {
	return func(yield func(*storage.Row, error) bool) {
		if r.used {
			yield(nil, errors.New("csv: rows already consumed"))
			return
		}
		r.used = true

		for {
			rec, err := r.cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				var pe *csv.ParseError
				if !errors.As(err, &pe) {
					yield(nil, errors.Wrap(err, "csv: read"))
					return
				}
				if !yield(nil, errors.Newf("line %d: %v", pe.Line, pe.Err)) {
					return
				}
				continue
			}

			if len(rec) != len(r.header) {
				line, _ := r.cr.FieldPos(0)
				err := errors.Newf("line %d: expected %d fields, got %d", line, len(r.header), len(rec))
				if !yield(nil, err) {
					return
				}
				continue
			}

			if !yield(r.row(rec), nil) {
				return
			}
		}
	}
}

func (r *Reader) row(rec []string) *storage.Row {
	row := storage.NewRow()
	for i, v := range rec {
		if r.opt.TrimSpace {
			v = strings.TrimSpace(v)
		}
		if v == "" && !r.opt.KeepEmpty {
			row.Set(r.header[i], nil)
			continue
		}
		row.Set(r.header[i], v)
	}
	return row
}

func headers(h []string, opt Options) ([]string, error) {
	out := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, col := range h {
		c := col
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		c = strings.TrimSpace(c)
		switch m, ok := opt.HeaderMap[c]; {
		case ok:
			c = m
		case opt.FoldHeaders:
			c = FoldHeader(c)
		}
		if c == "" {
			c = fmt.Sprintf("col_%d", i)
		}
		if j, dup := seen[c]; dup {
			return nil, errors.Newf("csv: duplicate column %q at positions %d and %d", c, j+1, i+1)
		}
		seen[c] = i
		out[i] = c
	}
	return out, nil
}

// FoldHeader turns header text into a lowercase ASCII identifier: accents are
// stripped, runs of space, dash, dot or underscore become one underscore and
// anything else is dropped.
func FoldHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
