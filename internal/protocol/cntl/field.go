package cntl

import (
	"bytes"
	"encoding/binary"
)

// fieldReader walks a payload with sticky bounds errors so decoders can read
// every fixed field and check once.
type fieldReader struct {
	b   []byte
	off int
	err error
}

func newFieldReader(b []byte) *fieldReader {
	return &fieldReader{b: b}
}

func (r *fieldReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.b)-r.off < n {
		r.err = ErrShortRecord
		return nil
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *fieldReader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *fieldReader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *fieldReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *fieldReader) bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (r *fieldReader) remaining() int {
	return len(r.b) - r.off
}

// cstring reads a nul-terminated string and consumes the terminator.
func (r *fieldReader) cstring() (string, error) {
	if r.err != nil {
		return "", r.err
	}
	rest := r.b[r.off:]
	idx := bytes.IndexByte(rest, 0)
	if idx < 0 {
		return "", ErrMissingTerminator
	}
	r.off += idx + 1
	return string(rest[:idx]), nil
}

type fieldWriter struct {
	buf []byte
}

func newFieldWriter(capacity int) *fieldWriter {
	return &fieldWriter{buf: make([]byte, 0, capacity)}
}

func (w *fieldWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *fieldWriter) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *fieldWriter) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *fieldWriter) raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *fieldWriter) cstring(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// record envelopes the written payload under command.
func (w *fieldWriter) record(command uint32) []byte {
	return Encode(command, w.buf)
}
