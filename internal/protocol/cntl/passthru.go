package cntl

import "fmt"

const passThruLen = 4 + 4 + 1 + 1 + 1

// PassThru announces a hardware-acceleration grant change to peripherals.
// ControlData carries the arbiter operation code.
type PassThru struct {
	Version     uint32
	DiagIDMask  uint32
	HWAccelType uint8
	HWAccelVer  uint8
	ControlData uint8
}

func (p PassThru) Encode() []byte {
	w := newFieldWriter(passThruLen)
	w.u32(p.Version)
	w.u32(p.DiagIDMask)
	w.u8(p.HWAccelType)
	w.u8(p.HWAccelVer)
	w.u8(p.ControlData)
	return w.record(CmdPassThru)
}

func DecodePassThru(payload []byte) (PassThru, error) {
	r := newFieldReader(payload)
	p := PassThru{
		Version:     r.u32(),
		DiagIDMask:  r.u32(),
		HWAccelType: r.u8(),
		HWAccelVer:  r.u8(),
		ControlData: r.u8(),
	}
	if r.err != nil {
		return PassThru{}, fmt.Errorf("pass_thru: %w", r.err)
	}
	return p, nil
}
