package cntl

import "fmt"

// Buffering modes for BUFFERING_TX_MODE.
const (
	BufferingStreaming uint8 = 0
	BufferingThreshold uint8 = 1
	BufferingCircular  uint8 = 2
)

const (
	diagModeV1Len      = 9 * 4
	diagModeV2Len      = diagModeV1Len + 1
	bufferingModeV1Len = 4 + 1 + 1
	bufferingModeV2Len = bufferingModeV1Len + 1
)

// DiagMode is the DIAG_MODE record. Version 2 appends the peripheral's diag
// id; version 1 is used while the peripheral has none.
type DiagMode struct {
	Version         uint32
	SleepVote       uint32
	RealTime        uint32
	UseNRTValues    uint32
	CommitThreshold uint32
	SleepThreshold  uint32
	SleepTime       uint32
	DrainTimer      uint32
	EventStaleTime  uint32
	DiagID          uint8
}

// NewDiagMode builds the mode record the router sends for realTime, picking
// the version from diagID.
func NewDiagMode(realTime bool, diagID uint8) DiagMode {
	var rt uint32
	if realTime {
		rt = 1
	}
	m := DiagMode{Version: 1, SleepVote: rt, RealTime: rt}
	if diagID != 0 {
		m.Version = 2
		m.DiagID = diagID
	}
	return m
}

func (m DiagMode) Encode() []byte {
	w := newFieldWriter(diagModeV2Len)
	w.u32(m.Version)
	w.u32(m.SleepVote)
	w.u32(m.RealTime)
	w.u32(m.UseNRTValues)
	w.u32(m.CommitThreshold)
	w.u32(m.SleepThreshold)
	w.u32(m.SleepTime)
	w.u32(m.DrainTimer)
	w.u32(m.EventStaleTime)
	if m.Version >= 2 {
		w.u8(m.DiagID)
	}
	return w.record(CmdDiagMode)
}

func DecodeDiagMode(payload []byte) (DiagMode, error) {
	r := newFieldReader(payload)
	m := DiagMode{
		Version:         r.u32(),
		SleepVote:       r.u32(),
		RealTime:        r.u32(),
		UseNRTValues:    r.u32(),
		CommitThreshold: r.u32(),
		SleepThreshold:  r.u32(),
		SleepTime:       r.u32(),
		DrainTimer:      r.u32(),
		EventStaleTime:  r.u32(),
	}
	if m.Version >= 2 {
		m.DiagID = r.u8()
	}
	if r.err != nil {
		return DiagMode{}, fmt.Errorf("diag_mode v%d: %w", m.Version, r.err)
	}
	return m, nil
}

// BufferingMode is the BUFFERING_TX_MODE record.
type BufferingMode struct {
	Version  uint32
	DiagID   uint8
	StreamID uint8
	Mode     uint8
}

// NewBufferingMode picks the record version from diagID.
func NewBufferingMode(mode uint8, diagID uint8) BufferingMode {
	m := BufferingMode{Version: 1, Mode: mode}
	if diagID != 0 {
		m.Version = 2
		m.DiagID = diagID
	}
	return m
}

func (m BufferingMode) Encode() []byte {
	w := newFieldWriter(bufferingModeV2Len)
	w.u32(m.Version)
	if m.Version >= 2 {
		w.u8(m.DiagID)
	}
	w.u8(m.StreamID)
	w.u8(m.Mode)
	return w.record(CmdBufferingTxMode)
}

func DecodeBufferingMode(payload []byte) (BufferingMode, error) {
	r := newFieldReader(payload)
	m := BufferingMode{Version: r.u32()}
	if m.Version >= 2 {
		m.DiagID = r.u8()
	}
	m.StreamID = r.u8()
	m.Mode = r.u8()
	if r.err != nil {
		return BufferingMode{}, fmt.Errorf("buffering_mode v%d: %w", m.Version, r.err)
	}
	return m, nil
}
