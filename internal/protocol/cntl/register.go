package cntl

import "fmt"

const (
	registerFixedLen   = 4 + 2 + 2 + 2 + 2
	registerRangeLen   = 2 + 2 + 4
	deregisterFixedLen = 4 + 2 + 2 + 2
	deregisterRangeLen = 2 + 2
)

// RegisterRange is one [First, Last] subsystem command range announced by a
// peripheral. Data is opaque to the router.
type RegisterRange struct {
	First uint16
	Last  uint16
	Data  uint32
}

// Register is the REGISTER payload.
type Register struct {
	Version uint32
	Cmd     uint16
	Subsys  uint16
	Port    uint16
	Ranges  []RegisterRange
}

// DeregisterRange is one range named by a DEREGISTER record.
type DeregisterRange struct {
	First uint16
	Last  uint16
}

// Deregister is the DEREGISTER payload.
type Deregister struct {
	Version uint32
	Cmd     uint16
	Subsys  uint16
	Ranges  []DeregisterRange
}

// checkCmdSubsys rejects command and subsystem codes wider than the one
// byte a route key holds.
func checkCmdSubsys(cmd, subsys uint16) error {
	if cmd > 0xff {
		return fmt.Errorf("%w: cmd=0x%x", ErrFieldRange, cmd)
	}
	if subsys > 0xff {
		return fmt.Errorf("%w: subsys=0x%x", ErrFieldRange, subsys)
	}
	return nil
}

func DecodeRegister(payload []byte) (Register, error) {
	r := newFieldReader(payload)
	reg := Register{
		Version: r.u32(),
		Cmd:     r.u16(),
		Subsys:  r.u16(),
	}
	count := int(r.u16())
	reg.Port = r.u16()
	if r.err != nil {
		return Register{}, fmt.Errorf("register: %w", r.err)
	}
	if err := checkCmdSubsys(reg.Cmd, reg.Subsys); err != nil {
		return Register{}, fmt.Errorf("register: %w", err)
	}
	if count*registerRangeLen > r.remaining() {
		return Register{}, fmt.Errorf("%w: register count=%d payload=%d", ErrInvalidCount, count, len(payload))
	}
	reg.Ranges = make([]RegisterRange, 0, count)
	for i := 0; i < count; i++ {
		reg.Ranges = append(reg.Ranges, RegisterRange{
			First: r.u16(),
			Last:  r.u16(),
			Data:  r.u32(),
		})
	}
	return reg, nil
}

// Encode returns the enveloped REGISTER record.
func (reg Register) Encode() []byte {
	w := newFieldWriter(registerFixedLen + len(reg.Ranges)*registerRangeLen)
	w.u32(reg.Version)
	w.u16(reg.Cmd)
	w.u16(reg.Subsys)
	w.u16(uint16(len(reg.Ranges)))
	w.u16(reg.Port)
	for _, rg := range reg.Ranges {
		w.u16(rg.First)
		w.u16(rg.Last)
		w.u32(rg.Data)
	}
	return w.record(CmdRegister)
}

func DecodeDeregister(payload []byte) (Deregister, error) {
	r := newFieldReader(payload)
	dereg := Deregister{
		Version: r.u32(),
		Cmd:     r.u16(),
		Subsys:  r.u16(),
	}
	count := int(r.u16())
	if r.err != nil {
		return Deregister{}, fmt.Errorf("deregister: %w", r.err)
	}
	if err := checkCmdSubsys(dereg.Cmd, dereg.Subsys); err != nil {
		return Deregister{}, fmt.Errorf("deregister: %w", err)
	}
	if count*deregisterRangeLen > r.remaining() {
		return Deregister{}, fmt.Errorf("%w: deregister count=%d payload=%d", ErrInvalidCount, count, len(payload))
	}
	dereg.Ranges = make([]DeregisterRange, 0, count)
	for i := 0; i < count; i++ {
		dereg.Ranges = append(dereg.Ranges, DeregisterRange{
			First: r.u16(),
			Last:  r.u16(),
		})
	}
	return dereg, nil
}

// Encode returns the enveloped DEREGISTER record.
func (dereg Deregister) Encode() []byte {
	w := newFieldWriter(deregisterFixedLen + len(dereg.Ranges)*deregisterRangeLen)
	w.u32(dereg.Version)
	w.u16(dereg.Cmd)
	w.u16(dereg.Subsys)
	w.u16(uint16(len(dereg.Ranges)))
	for _, rg := range dereg.Ranges {
		w.u16(rg.First)
		w.u16(rg.Last)
	}
	return w.record(CmdDeregister)
}
