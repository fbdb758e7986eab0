package router

import (
	"fmt"

	"github.com/danmuck/diagctl/internal/observability"
	"github.com/danmuck/diagctl/internal/protocol/cntl"
)

// handleRegister appends one route per range. If the table fills up the
// ranges added before the failure stay in place.
func (r *Router) handleRegister(p *Peripheral, payload []byte) error {
	reg, err := cntl.DecodeRegister(payload)
	if err != nil {
		return err
	}
	defer func() { observability.SetRouteEntries(r.routes.len()) }()

	cmd, subsys := uint8(reg.Cmd), uint8(reg.Subsys)
	for i, rg := range reg.Ranges {
		first := PackKey(cmd, subsys, rg.First)
		last := PackKey(cmd, subsys, rg.Last)
		if err := r.routes.add(p, first, last); err != nil {
			return fmt.Errorf("register range %d of %d: %w", i+1, len(reg.Ranges), err)
		}
		p.log.Debug().
			Str("first", fmt.Sprintf("0x%08x", first)).
			Str("last", fmt.Sprintf("0x%08x", last)).
			Msg("route registered")
	}
	return nil
}

// handleDeregister removes routes matching each range exactly. Ranges that
// match nothing are ignored.
func (r *Router) handleDeregister(p *Peripheral, payload []byte) error {
	dereg, err := cntl.DecodeDeregister(payload)
	if err != nil {
		return err
	}
	cmd, subsys := uint8(dereg.Cmd), uint8(dereg.Subsys)
	removed := 0
	for _, rg := range dereg.Ranges {
		removed += r.routes.remove(p, PackKey(cmd, subsys, rg.First), PackKey(cmd, subsys, rg.Last))
	}
	observability.SetRouteEntries(r.routes.len())
	p.log.Debug().
		Int("ranges", len(dereg.Ranges)).
		Int("removed", removed).
		Msg("routes deregistered")
	return nil
}

// handleFeatureMask negotiates p's features and sends, in order, the
// acknowledgement, the log, msg and event masks, the diag mode and the
// buffering mode. A repeated FEATURE_MASK renegotiates from scratch.
func (r *Router) handleFeatureMask(p *Peripheral, payload []byte) error {
	fm, err := cntl.DecodeFeatureMask(payload)
	if err != nil {
		return err
	}
	negotiated := fm.Mask & p.LocalFeatures()
	p.features.Store(negotiated)
	p.negotiated.Store(true)
	p.log.Info().
		Str("announced", formatFeatures(fm.Mask)).
		Str("mask", fmt.Sprintf("0x%x", fm.Mask)).
		Str("negotiated", fmt.Sprintf("0x%x", negotiated)).
		Msg("feature mask")

	if r.requireControl(p) != nil {
		return nil
	}
	if err := r.enqueue(p, cntl.FeatureMask{Mask: negotiated}.Encode()); err != nil {
		return err
	}
	if err := r.sendMasks(p); err != nil {
		p.log.Warn().Err(err).Msg("mask distribution incomplete")
	}
	if err := r.setDiagMode(p, r.realTime); err != nil {
		p.log.Warn().Err(err).Msg("diag mode not sent")
	}
	if err := r.setBufferingMode(p, r.bufferMode); err != nil {
		p.log.Warn().Err(err).Msg("buffering mode not sent")
	}
	return nil
}

// handleDiagID assigns a diag-source id to the requesting process and
// answers with a version 1 response followed by the current hardware
// acceleration grants.
func (r *Router) handleDiagID(p *Peripheral, payload []byte) error {
	withMask := p.HasFeature(FeatureDiagIDFeatureMask)
	req, err := cntl.DecodeDiagID(payload, withMask)
	if err != nil {
		return err
	}
	id, created, err := r.diagIDs.assign(req.Version, req.DiagID, req.ProcessName)
	if err != nil {
		return err
	}
	if created {
		observability.SetDiagIDs(len(r.diagIDs.entries))
		p.log.Info().
			Uint8("diag_id", id).
			Str("process", req.ProcessName).
			Uint32("version", req.Version).
			Msg("diag id assigned")
	}
	p.diagID.CompareAndSwap(0, uint32(id))

	if withMask && req.HasFeatureMask() {
		r.arbiter.declare(id, req.FeatureBits())
	}
	resp := cntl.DiagIDResponse{DiagID: uint32(id), ProcessName: req.ProcessName}
	if err := r.enqueue(p, resp.Encode()); err != nil {
		return err
	}
	r.replayHWAccel(p)
	return nil
}
