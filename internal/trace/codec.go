package trace

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxRecordSize bounds a single encoded record.
const MaxRecordSize = 1 << 20

// ErrRecordTooLarge is returned for a length prefix above MaxRecordSize.
var ErrRecordTooLarge = errors.New("trace record too large")

// #region writer
// Writer appends length-prefixed msgpack records: 4 bytes big-endian length,
// then the encoded record.
type Writer struct {
	w *bufio.Writer
	n int
}

// NewWriter wraps w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write encodes one record.
func (w *Writer) Write(rec Record) error {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %d: %w", rec.Seq, err)
	}
	if len(data) > MaxRecordSize {
		return fmt.Errorf("record %d: %w", rec.Seq, ErrRecordTooLarge)
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := w.w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.n++
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	return w.n
}

// #endregion writer

// #region reader
// Reader decodes records written by Writer.
type Reader struct {
	r   *bufio.Reader
	buf []byte
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record, or io.EOF at a clean end of stream. A
// stream that ends inside a record returns io.ErrUnexpectedEOF.
func (r *Reader) Next() (Record, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		return Record{}, err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > MaxRecordSize {
		return Record{}, fmt.Errorf("length %d: %w", n, ErrRecordTooLarge)
	}
	if cap(r.buf) < int(n) {
		r.buf = make([]byte, n)
	}
	data := r.buf[:n]
	if _, err := io.ReadFull(r.r, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, fmt.Errorf("read record: %w", err)
	}
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

// ReadAll reads records until io.EOF.
func ReadAll(r io.Reader) ([]Record, error) {
	tr := NewReader(r)
	var out []Record
	for {
		rec, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// #endregion reader
