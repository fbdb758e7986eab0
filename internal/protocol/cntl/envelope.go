package cntl

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderLen is the size of the {command, length} envelope.
	HeaderLen = 8

	// MaxRecordLen bounds every record the router builds, header included.
	MaxRecordLen = 16 * 1024
)

// Header is the fixed control envelope. Length counts payload bytes only.
type Header struct {
	Command uint32
	Length  uint32
}

// Record is one enveloped control record.
type Record struct {
	Header  Header
	Payload []byte
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	binary.LittleEndian.PutUint32(buf[0:4], h.Command)
	binary.LittleEndian.PutUint32(buf[4:8], h.Length)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, HeaderLen, len(b))
	}
	return Header{
		Command: binary.LittleEndian.Uint32(b[0:4]),
		Length:  binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

// Encode envelopes payload under command.
func Encode(command uint32, payload []byte) []byte {
	buf := make([]byte, HeaderLen, HeaderLen+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], command)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	return append(buf, payload...)
}

// Walk calls fn for each complete record in buf, in order, and returns the
// number of records delivered. Trailing bytes shorter than a header are
// ignored. A record whose declared length runs past the end of buf stops the
// walk with ErrTruncated; records before it have already been delivered.
func Walk(buf []byte, fn func(Record)) (int, error) {
	n := 0
	offset := 0
	for len(buf)-offset >= HeaderLen {
		h, err := DecodeHeader(buf[offset : offset+HeaderLen])
		if err != nil {
			return n, err
		}
		remaining := uint64(len(buf) - offset - HeaderLen)
		if uint64(h.Length) > remaining {
			return n, fmt.Errorf("%w: command=%d length=%d remaining=%d offset=%d",
				ErrTruncated, h.Command, h.Length, remaining, offset)
		}
		start := offset + HeaderLen
		end := start + int(h.Length)
		fn(Record{Header: h, Payload: buf[start:end:end]})
		n++
		offset = end
	}
	return n, nil
}
