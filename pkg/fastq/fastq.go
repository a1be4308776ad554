// Package fastq reads and writes FASTQ files, plain or gzip-compressed,
// converting between on-disk records and seq.Record values. It is the
// I/O collaborator in front of the pipeline; malformed input surfaces as
// data errors carrying the offending line number.
package fastq

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/seqweave/seqweave/pkg/errors"
	"github.com/seqweave/seqweave/pkg/seq"
)

// Reader parses FASTQ records from a stream.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	closers []io.Closer
}

// NewReader wraps an uncompressed FASTQ stream.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Reader{scanner: sc}
}

// Open opens a FASTQ file for reading. "-" reads stdin; a .gz suffix
// selects gzip decompression.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "opening FASTQ input")
	}

	var src io.Reader = f
	closers := []io.Closer{f}
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeData, "opening gzip stream")
		}
		src = gz
		closers = append([]io.Closer{gz}, closers...)
	}

	r := NewReader(src)
	r.closers = closers
	return r, nil
}

// Read returns the next record, or io.EOF after the last one. Records
// come from the package record pool; Release them once they leave the
// pipeline to keep the pool populated.
func (r *Reader) Read() (*seq.Record, error) {
	header, ok := r.nextLine()
	if !ok {
		if err := r.scanner.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "reading FASTQ input")
		}
		return nil, io.EOF
	}
	if len(header) == 0 || header[0] != '@' {
		return nil, r.malformed("record header must start with '@'")
	}
	id := string(bytes.TrimPrefix(firstField(header), []byte("@")))

	line, ok := r.nextLine()
	if !ok {
		return nil, r.malformed("truncated record: missing sequence line")
	}
	// The scanner reuses its buffer across lines.
	bases := append([]byte(nil), line...)

	sep, ok := r.nextLine()
	if !ok {
		return nil, r.malformed("truncated record: missing separator line")
	}
	if len(sep) == 0 || sep[0] != '+' {
		return nil, r.malformed("separator line must start with '+'")
	}
	qual, ok := r.nextLine()
	if !ok {
		return nil, r.malformed("truncated record: missing quality line")
	}
	if len(qual) != len(bases) {
		return nil, r.malformed("quality length does not match sequence length")
	}

	rec, err := seq.FromPool(id, bases, append([]byte(nil), qual...))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "building record")
	}
	return rec, nil
}

// Close releases the underlying file handles, if any.
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Reader) nextLine() ([]byte, bool) {
	if !r.scanner.Scan() {
		return nil, false
	}
	r.line++
	return r.scanner.Bytes(), true
}

func (r *Reader) malformed(msg string) error {
	return errors.Newf(errors.ErrorTypeData, "%s", msg).WithDetail("line", r.line)
}

// firstField cuts an identifier at the first whitespace, dropping the
// optional FASTQ description.
func firstField(b []byte) []byte {
	if i := bytes.IndexAny(b, " \t"); i >= 0 {
		return b[:i]
	}
	return b
}

// Writer emits seq.Records as FASTQ.
type Writer struct {
	w       *bufio.Writer
	closers []io.Closer
}

// NewWriter wraps an uncompressed output stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Create opens a FASTQ file for writing. "-" writes stdout; a .gz
// suffix selects gzip compression.
func Create(path string) (*Writer, error) {
	if path == "-" {
		return NewWriter(os.Stdout), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "opening FASTQ output")
	}

	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		w := NewWriter(gz)
		w.closers = []io.Closer{gz, f}
		return w, nil
	}
	w := NewWriter(f)
	w.closers = []io.Closer{f}
	return w, nil
}

// Write emits the record's whole-read region, so trims applied by the
// graph are reflected in the output. Records without qualities get a
// constant placeholder quality.
func (w *Writer) Write(rec *seq.Record) error {
	bases, err := rec.Slice(seq.WholeRead)
	if err != nil {
		return err
	}
	qual, err := rec.QualSlice(seq.WholeRead)
	if err != nil {
		return err
	}
	if qual == nil {
		qual = bytes.Repeat([]byte{'I'}, len(bases))
	}

	if _, err := w.w.WriteString("@" + rec.ID + "\n"); err != nil {
		return err
	}
	if _, err := w.w.Write(bases); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n+\n"); err != nil {
		return err
	}
	if _, err := w.w.Write(qual); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes buffered output and releases file handles.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
