package cntl

import "fmt"

// Packed diagnostic commands the router answers itself. These travel on the
// command channel rather than the control channel, so they carry no
// envelope.

const (
	DiagCmdHeaderLen  = 4
	diagIDQueryLen    = DiagCmdHeaderLen + 1
	hwAccelCommandLen = DiagCmdHeaderLen + 1 + 1 + 2 + 1 + 1 + 4
)

// DiagCmdHeader is the {cmd_code, subsys_id, subsys_cmd_code} prefix of a
// subsystem-dispatched diagnostic command.
type DiagCmdHeader struct {
	Cmd    uint8
	Subsys uint8
	Code   uint16
}

func decodeDiagCmdHeader(r *fieldReader) DiagCmdHeader {
	return DiagCmdHeader{Cmd: r.u8(), Subsys: r.u8(), Code: r.u16()}
}

func (h DiagCmdHeader) write(w *fieldWriter) {
	w.u8(h.Cmd)
	w.u8(h.Subsys)
	w.u16(h.Code)
}

// DiagIDQuery asks the router for every registered diag-source id.
type DiagIDQuery struct {
	Header  DiagCmdHeader
	Version uint8
}

func DecodeDiagIDQuery(pkt []byte) (DiagIDQuery, error) {
	r := newFieldReader(pkt)
	q := DiagIDQuery{Header: decodeDiagCmdHeader(r), Version: r.u8()}
	if r.err != nil {
		return DiagIDQuery{}, fmt.Errorf("diag_id query: %w", r.err)
	}
	return q, nil
}

// DiagIDInfo is one entry of a diag-id query response.
type DiagIDInfo struct {
	ID          uint8
	ProcessName string
}

func (d DiagIDInfo) wireLen() int {
	return 2 + len(d.ProcessName) + 1
}

// EncodeDiagIDQueryResponse echoes q and appends as many entries as fit in
// maxLen bytes. It returns the response and the number of entries written.
func EncodeDiagIDQueryResponse(q DiagIDQuery, entries []DiagIDInfo, maxLen int) ([]byte, int) {
	w := newFieldWriter(diagIDQueryLen + 1)
	q.Header.write(w)
	w.u8(q.Version)
	w.u8(0)
	count := 0
	for _, e := range entries {
		if len(e.ProcessName) > MaxProcessNameLen {
			continue
		}
		if len(w.buf)+e.wireLen() > maxLen || count == 0xff {
			break
		}
		w.u8(e.ID)
		w.u8(uint8(len(e.ProcessName) + 1))
		w.cstring(e.ProcessName)
		count++
	}
	w.buf[diagIDQueryLen] = uint8(count)
	return w.buf, count
}

// DecodeDiagIDQueryResponse parses a response built by
// EncodeDiagIDQueryResponse.
func DecodeDiagIDQueryResponse(pkt []byte) (DiagIDQuery, []DiagIDInfo, error) {
	r := newFieldReader(pkt)
	q := DiagIDQuery{Header: decodeDiagCmdHeader(r), Version: r.u8()}
	count := int(r.u8())
	if r.err != nil {
		return DiagIDQuery{}, nil, fmt.Errorf("diag_id query response: %w", r.err)
	}
	entries := make([]DiagIDInfo, 0, count)
	for i := 0; i < count; i++ {
		id := r.u8()
		nameLen := int(r.u8())
		raw := r.take(nameLen)
		if r.err != nil {
			return DiagIDQuery{}, nil, fmt.Errorf("diag_id query entry %d: %w", i, r.err)
		}
		if nameLen == 0 || raw[nameLen-1] != 0 {
			return DiagIDQuery{}, nil, fmt.Errorf("diag_id query entry %d: %w", i, ErrMissingTerminator)
		}
		entries = append(entries, DiagIDInfo{ID: id, ProcessName: string(raw[:nameLen-1])})
	}
	return q, entries, nil
}

// HWAccelCommand is the hardware-acceleration request and its response. The
// response reuses the request layout with Status in the reserved field and
// DiagIDMask replaced by the granted mask.
type HWAccelCommand struct {
	Header     DiagCmdHeader
	Version    uint8
	Operation  uint8
	Status     uint16
	Type       uint8
	TypeVer    uint8
	DiagIDMask uint32
}

// Hardware-acceleration response status codes.
const (
	HWAccelStatusOK      uint16 = 0
	HWAccelStatusInvalid uint16 = 1
)

func DecodeHWAccelCommand(pkt []byte) (HWAccelCommand, error) {
	r := newFieldReader(pkt)
	c := HWAccelCommand{
		Header:     decodeDiagCmdHeader(r),
		Version:    r.u8(),
		Operation:  r.u8(),
		Status:     r.u16(),
		Type:       r.u8(),
		TypeVer:    r.u8(),
		DiagIDMask: r.u32(),
	}
	if r.err != nil {
		return HWAccelCommand{}, fmt.Errorf("hw_accel command: %w", r.err)
	}
	return c, nil
}

func (c HWAccelCommand) Encode() []byte {
	w := newFieldWriter(hwAccelCommandLen)
	c.Header.write(w)
	w.u8(c.Version)
	w.u8(c.Operation)
	w.u16(c.Status)
	w.u8(c.Type)
	w.u8(c.TypeVer)
	w.u32(c.DiagIDMask)
	return w.buf
}
