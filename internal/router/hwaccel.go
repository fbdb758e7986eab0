package router

import (
	"fmt"

	"github.com/danmuck/diagctl/internal/observability"
	"github.com/danmuck/diagctl/internal/protocol/cntl"
)

// Hardware-acceleration feature types. Each type indexes one slot of the
// arbiter; slot 0 is never a valid request target.
const (
	HWAccelTypeAll uint8 = 0
	HWAccelTypeSTM uint8 = 1
	HWAccelTypeATB uint8 = 2
	HWAccelTypeMax       = HWAccelTypeATB

	HWAccelVer1 uint8 = 1

	HWAccelFeatureCount = 3
)

// HWAccelOp is an arbiter operation, carried on the wire as control_data.
type HWAccelOp uint8

const (
	HWAccelDisable HWAccelOp = 0
	HWAccelEnable  HWAccelOp = 1
	HWAccelQuery   HWAccelOp = 2
)

func (op HWAccelOp) String() string {
	switch op {
	case HWAccelDisable:
		return "disable"
	case HWAccelEnable:
		return "enable"
	case HWAccelQuery:
		return "query"
	default:
		return fmt.Sprintf("op_%d", uint8(op))
	}
}

// HWAccelRequest asks the arbiter to act on DiagIDMask for one feature.
// Bit n of the mask stands for diag-source id n+1.
type HWAccelRequest struct {
	Operation  HWAccelOp
	Type       uint8
	Version    uint8
	DiagIDMask uint32
}

// ArbiterState is a copy of the arbiter arrays, indexed by feature type.
type ArbiterState struct {
	Feature  [HWAccelFeatureCount]uint32 `json:"feature"`
	Status   [HWAccelFeatureCount]uint32 `json:"status"`
	HWBacked [HWAccelFeatureCount]bool   `json:"hw_backed"`
}

// arbiter tracks which diag sources declared each feature and which are
// granted it. A diag source holds at most one hardware-backed feature.
type arbiter struct {
	feature  [HWAccelFeatureCount]uint32
	status   [HWAccelFeatureCount]uint32
	hwBacked [HWAccelFeatureCount]bool
}

func featureIndex(typ, ver uint8) (int, error) {
	if ver != HWAccelVer1 {
		return 0, fmt.Errorf("%w: hw accel version %d", ErrInvalidArgument, ver)
	}
	switch typ {
	case HWAccelTypeSTM, HWAccelTypeATB:
		return int(typ), nil
	default:
		return 0, fmt.Errorf("%w: hw accel type %d", ErrInvalidArgument, typ)
	}
}

func diagIDBit(id uint8) uint32 {
	if id == 0 || id > 32 {
		return 0
	}
	return 1 << (id - 1)
}

// declare records the features a diag source announced in its DIAG_ID
// feature mask. Any declaration marks the hardware slots as backed.
func (a *arbiter) declare(id uint8, pdMask uint32) {
	bit := diagIDBit(id)
	if pdMask == 0 || bit == 0 {
		return
	}
	for i := 0; i < HWAccelFeatureCount; i++ {
		if pdMask&(1<<i) != 0 {
			a.feature[i] |= bit
		}
	}
	a.hwBacked[HWAccelTypeSTM] = true
	a.hwBacked[HWAccelTypeATB] = true
}

// apply runs req against the arrays and returns the feature's grant mask
// after the operation. Nothing changes when req is invalid.
func (a *arbiter) apply(req HWAccelRequest) (uint32, error) {
	if req.Operation > HWAccelQuery {
		return 0, fmt.Errorf("%w: hw accel operation %d", ErrInvalidArgument, req.Operation)
	}
	f, err := featureIndex(req.Type, req.Version)
	if err != nil {
		return 0, err
	}

	switch req.Operation {
	case HWAccelDisable:
		a.status[f] &^= a.feature[f] & req.DiagIDMask
	case HWAccelEnable:
		requested := a.feature[f] & req.DiagIDMask
		a.status[f] |= requested
		for i := 0; i < HWAccelFeatureCount; i++ {
			if i == f || !a.hwBacked[i] {
				continue
			}
			a.status[i] &^= a.feature[i] & requested
		}
	}
	return a.status[f], nil
}

// active lists the hardware-backed features currently granted to a
// declared diag source.
func (a *arbiter) active() []int {
	out := make([]int, 0, HWAccelFeatureCount)
	for i := 0; i < HWAccelFeatureCount; i++ {
		if a.hwBacked[i] && a.feature[i]&a.status[i] != 0 {
			out = append(out, i)
		}
	}
	return out
}

func (a *arbiter) state() ArbiterState {
	return ArbiterState{Feature: a.feature, Status: a.status, HWBacked: a.hwBacked}
}

// HWAccelRequest applies req to the arbiter and returns the feature's
// grant mask afterwards. Enable and disable are announced with PASS_THRU
// to every peripheral that negotiated FeatureDiagIDFeatureMask; queries
// change nothing and announce nothing.
func (r *Router) HWAccelRequest(req HWAccelRequest) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hwAccelRequest(req)
}

func (r *Router) hwAccelRequest(req HWAccelRequest) (uint32, error) {
	granted, err := r.arbiter.apply(req)
	observability.RecordHWAccelRequest(req.Operation.String(), err == nil)
	if err != nil {
		return 0, err
	}
	r.log.Info().
		Str("operation", req.Operation.String()).
		Uint8("type", req.Type).
		Str("requested", fmt.Sprintf("0x%x", req.DiagIDMask)).
		Str("granted", fmt.Sprintf("0x%x", granted)).
		Msg("hw accel request")
	if req.Operation == HWAccelQuery {
		return granted, nil
	}

	rec := cntl.PassThru{
		Version:     1,
		DiagIDMask:  req.DiagIDMask,
		HWAccelType: req.Type,
		HWAccelVer:  req.Version,
		ControlData: uint8(req.Operation),
	}.Encode()
	for _, p := range r.peripherals {
		if !p.HasFeature(FeatureDiagIDFeatureMask) || !p.ControlOpen() {
			continue
		}
		if err := r.enqueue(p, rec); err != nil {
			p.log.Warn().Err(err).Msg("pass_thru not queued")
		}
	}
	return granted, nil
}

// replayHWAccel tells p about every hardware feature currently granted.
func (r *Router) replayHWAccel(p *Peripheral) {
	if !p.HasFeature(FeatureDiagIDFeatureMask) {
		return
	}
	for _, f := range r.arbiter.active() {
		rec := cntl.PassThru{
			Version:     1,
			DiagIDMask:  r.arbiter.status[f],
			HWAccelType: uint8(f),
			HWAccelVer:  HWAccelVer1,
			ControlData: uint8(HWAccelEnable),
		}
		if err := r.enqueue(p, rec.Encode()); err != nil {
			p.log.Warn().Err(err).Int("feature", f).Msg("hw accel status not queued")
		}
	}
}

// HWAccelState returns a copy of the arbiter arrays.
func (r *Router) HWAccelState() ArbiterState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.arbiter.state()
}
