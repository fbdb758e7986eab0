package cntl

import "fmt"

// MaskStatus is the validity state a mask backend reports for one mask kind.
type MaskStatus uint8

const (
	MaskInvalid     MaskStatus = 0
	MaskAllDisabled MaskStatus = 1
	MaskAllEnabled  MaskStatus = 2
	MaskValid       MaskStatus = 3
)

func (s MaskStatus) String() string {
	switch s {
	case MaskInvalid:
		return "invalid"
	case MaskAllDisabled:
		return "all_disabled"
	case MaskAllEnabled:
		return "all_enabled"
	case MaskValid:
		return "valid"
	default:
		return fmt.Sprintf("status_%d", uint8(s))
	}
}

// DefaultStreamID is the stream every mask record targets.
const DefaultStreamID uint8 = 1

const (
	logMaskFixedLen   = 1 + 1 + 1 + 4 + 4
	msgMaskFixedLen   = 1 + 1 + 1 + 2 + 2 + 4
	eventMaskFixedLen = 1 + 1 + 1 + 4
)

// LogMask is the LOG_MASK record for one equipment id.
type LogMask struct {
	StreamID uint8
	Status   MaskStatus
	EquipID  uint8
	LastItem uint32
	Mask     []byte
}

func (m LogMask) Encode() []byte {
	w := newFieldWriter(logMaskFixedLen + len(m.Mask))
	w.u8(m.StreamID)
	w.u8(uint8(m.Status))
	w.u8(m.EquipID)
	w.u32(m.LastItem)
	w.u32(uint32(len(m.Mask)))
	w.raw(m.Mask)
	return w.record(CmdLogMask)
}

func DecodeLogMask(payload []byte) (LogMask, error) {
	r := newFieldReader(payload)
	m := LogMask{
		StreamID: r.u8(),
		Status:   MaskStatus(r.u8()),
		EquipID:  r.u8(),
		LastItem: r.u32(),
	}
	size := r.u32()
	if r.err != nil {
		return LogMask{}, fmt.Errorf("log_mask: %w", r.err)
	}
	if uint64(size) > uint64(r.remaining()) {
		return LogMask{}, fmt.Errorf("%w: log_mask size=%d payload=%d", ErrShortRecord, size, len(payload))
	}
	m.Mask = r.bytes(int(size))
	return m, nil
}

// SSIDRange is an inclusive range of message subsystem ids.
type SSIDRange struct {
	First uint16
	Last  uint16
}

// Items returns the number of mask words covering the range.
func (r SSIDRange) Items() int {
	if r.Last < r.First {
		return 0
	}
	return int(r.Last-r.First) + 1
}

// MsgMask is the MSG_MASK record for one SSID range.
type MsgMask struct {
	StreamID uint8
	Status   MaskStatus
	Mode     uint8
	Range    SSIDRange
	Masks    []uint32
}

func (m MsgMask) Encode() []byte {
	w := newFieldWriter(msgMaskFixedLen + 4*len(m.Masks))
	w.u8(m.StreamID)
	w.u8(uint8(m.Status))
	w.u8(m.Mode)
	w.u16(m.Range.First)
	w.u16(m.Range.Last)
	w.u32(uint32(len(m.Masks)))
	for _, v := range m.Masks {
		w.u32(v)
	}
	return w.record(CmdMsgMask)
}

func DecodeMsgMask(payload []byte) (MsgMask, error) {
	r := newFieldReader(payload)
	m := MsgMask{
		StreamID: r.u8(),
		Status:   MaskStatus(r.u8()),
		Mode:     r.u8(),
		Range:    SSIDRange{First: r.u16(), Last: r.u16()},
	}
	count := r.u32()
	if r.err != nil {
		return MsgMask{}, fmt.Errorf("msg_mask: %w", r.err)
	}
	if uint64(count)*4 > uint64(r.remaining()) {
		return MsgMask{}, fmt.Errorf("%w: msg_mask items=%d payload=%d", ErrInvalidCount, count, len(payload))
	}
	m.Masks = make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		m.Masks = append(m.Masks, r.u32())
	}
	return m, nil
}

// EventMask is the EVENT_MASK record.
type EventMask struct {
	StreamID uint8
	Status   MaskStatus
	Config   uint8
	Mask     []byte
}

func (m EventMask) Encode() []byte {
	w := newFieldWriter(eventMaskFixedLen + len(m.Mask))
	w.u8(m.StreamID)
	w.u8(uint8(m.Status))
	w.u8(m.Config)
	w.u32(uint32(len(m.Mask)))
	w.raw(m.Mask)
	return w.record(CmdEventMask)
}

func DecodeEventMask(payload []byte) (EventMask, error) {
	r := newFieldReader(payload)
	m := EventMask{
		StreamID: r.u8(),
		Status:   MaskStatus(r.u8()),
		Config:   r.u8(),
	}
	size := r.u32()
	if r.err != nil {
		return EventMask{}, fmt.Errorf("event_mask: %w", r.err)
	}
	if uint64(size) > uint64(r.remaining()) {
		return EventMask{}, fmt.Errorf("%w: event_mask size=%d payload=%d", ErrShortRecord, size, len(payload))
	}
	m.Mask = r.bytes(int(size))
	return m, nil
}
