package router

import (
	"testing"

	"github.com/danmuck/diagctl/internal/protocol/cntl"
	"github.com/stretchr/testify/require"
)

// allFeatures is what a peripheral announcing every capability sends.
const allFeatures uint32 = 0xffffffff

func newTestRouter(t *testing.T, mutate ...func(*Options)) *Router {
	t.Helper()
	opts := DefaultOptions()
	for _, fn := range mutate {
		fn(&opts)
	}
	return New(opts)
}

func addPeripheral(t *testing.T, r *Router, name string) *Peripheral {
	t.Helper()
	p, err := r.AddPeripheral(PeripheralConfig{Name: name})
	require.NoError(t, err)
	return p
}

func recv(t *testing.T, r *Router, p *Peripheral, recs ...[]byte) RecvResult {
	t.Helper()
	var buf []byte
	for _, rec := range recs {
		buf = append(buf, rec...)
	}
	res, err := r.Recv(p, buf)
	require.NoError(t, err)
	return res
}

// negotiate runs a full-mask FEATURE_MASK exchange and discards the burst.
func negotiate(t *testing.T, r *Router, p *Peripheral) {
	t.Helper()
	recv(t, r, p, cntl.FeatureMask{Mask: allFeatures}.Encode())
	p.Drain()
}

func commandsOf(t *testing.T, recs [][]byte) []uint32 {
	t.Helper()
	out := make([]uint32, 0, len(recs))
	for _, rec := range recs {
		h, err := cntl.DecodeHeader(rec)
		require.NoError(t, err)
		require.Equal(t, int(h.Length), len(rec)-cntl.HeaderLen, "record length field")
		out = append(out, h.Command)
	}
	return out
}

func payloadOf(rec []byte) []byte {
	return rec[cntl.HeaderLen:]
}

func registerRecord(cmd, subsys uint16, ranges ...[2]uint16) []byte {
	reg := cntl.Register{Version: 1, Cmd: cmd, Subsys: subsys}
	for _, rg := range ranges {
		reg.Ranges = append(reg.Ranges, cntl.RegisterRange{First: rg[0], Last: rg[1]})
	}
	return reg.Encode()
}

func deregisterRecord(cmd, subsys uint16, ranges ...[2]uint16) []byte {
	dereg := cntl.Deregister{Version: 1, Cmd: cmd, Subsys: subsys}
	for _, rg := range ranges {
		dereg.Ranges = append(dereg.Ranges, cntl.DeregisterRange{First: rg[0], Last: rg[1]})
	}
	return dereg.Encode()
}

func diagIDRecord(version, id uint32, features []byte, name string) []byte {
	return cntl.DiagIDRequest{Version: version, DiagID: id, FeatureMask: features, ProcessName: name}.Encode()
}

type fakeMasks struct {
	logStatus   cntl.MaskStatus
	equips      []uint8
	logMasks    map[uint8][]byte
	logErr      error
	msgStatus   cntl.MaskStatus
	ranges      []cntl.SSIDRange
	msgWords    map[cntl.SSIDRange][]uint32
	eventStatus cntl.MaskStatus
	event       []byte
}

func (f *fakeMasks) LogMaskStatus() cntl.MaskStatus { return f.logStatus }

func (f *fakeMasks) LogEquipIDs() []uint8 { return f.equips }

func (f *fakeMasks) LogMask(equip uint8) (uint32, []byte, error) {
	if f.logErr != nil {
		return 0, nil, f.logErr
	}
	mask := f.logMasks[equip]
	return uint32(len(mask) * 8), mask, nil
}

func (f *fakeMasks) MsgMaskStatus() cntl.MaskStatus { return f.msgStatus }

func (f *fakeMasks) MsgRanges() []cntl.SSIDRange { return f.ranges }

func (f *fakeMasks) MsgMask(rg cntl.SSIDRange) ([]uint32, error) { return f.msgWords[rg], nil }

func (f *fakeMasks) EventMaskStatus() cntl.MaskStatus { return f.eventStatus }

func (f *fakeMasks) EventMask() ([]byte, error) { return f.event, nil }
