package router

import (
	"errors"
	"fmt"

	"github.com/danmuck/diagctl/internal/protocol/cntl"
)

const allEnabledMsgWord uint32 = 0xffffffff

// requireControl reports whether records can be queued for p, logging a
// warning when they cannot.
func (r *Router) requireControl(p *Peripheral) error {
	if p.closed.Load() {
		return ErrPeripheralClosed
	}
	if !p.controlOpen.Load() {
		p.log.Warn().Msg("no control channel, skipping")
		return fmt.Errorf("%w: %s", ErrNoControlChannel, p.name)
	}
	return nil
}

// SendMasks pushes the log, msg and event masks to p.
func (r *Router) SendMasks(p *Peripheral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sendMasks(p)
}

func (r *Router) sendMasks(p *Peripheral) error {
	if err := r.requireControl(p); err != nil {
		return err
	}
	return errors.Join(r.sendLogMask(p), r.sendMsgMasks(p), r.sendEventMask(p))
}

// SendLogMask sends one LOG_MASK per equipment id when the log mask is
// valid, otherwise a single record for equipment 0 with no mask bytes. A
// valid mask with no usable equipment still sends the equipment 0 record so
// the burst keeps its shape.
func (r *Router) SendLogMask(p *Peripheral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireControl(p); err != nil {
		return err
	}
	return r.sendLogMask(p)
}

func (r *Router) sendLogMask(p *Peripheral) error {
	status := r.masks.LogMaskStatus()
	if status != cntl.MaskValid {
		return r.enqueue(p, cntl.LogMask{StreamID: cntl.DefaultStreamID, Status: status}.Encode())
	}

	var (
		errs []error
		sent int
	)
	for _, equip := range r.masks.LogEquipIDs() {
		lastItem, mask, err := r.masks.LogMask(equip)
		if err != nil {
			errs = append(errs, fmt.Errorf("log mask equip %d: %w", equip, err))
			continue
		}
		rec := cntl.LogMask{
			StreamID: cntl.DefaultStreamID,
			Status:   status,
			EquipID:  equip,
			LastItem: lastItem,
			Mask:     mask,
		}
		if err := r.enqueue(p, rec.Encode()); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	if sent == 0 {
		p.log.Warn().Msg("valid log mask has no equipment records, sending empty equip 0")
		errs = append(errs, r.enqueue(p, cntl.LogMask{StreamID: cntl.DefaultStreamID, Status: status}.Encode()))
	}
	return errors.Join(errs...)
}

// SendMsgMasks sends one MSG_MASK per SSID range the backend reports.
func (r *Router) SendMsgMasks(p *Peripheral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireControl(p); err != nil {
		return err
	}
	return r.sendMsgMasks(p)
}

func (r *Router) sendMsgMasks(p *Peripheral) error {
	status := r.masks.MsgMaskStatus()
	ranges := r.masks.MsgRanges()
	if len(ranges) == 0 {
		ranges = []cntl.SSIDRange{{}}
	}

	var errs []error
	for _, rg := range ranges {
		rec := cntl.MsgMask{StreamID: cntl.DefaultStreamID, Status: status, Range: rg}
		switch status {
		case cntl.MaskValid:
			words, err := r.masks.MsgMask(rg)
			if err != nil {
				errs = append(errs, fmt.Errorf("msg mask %d-%d: %w", rg.First, rg.Last, err))
				continue
			}
			rec.Masks = make([]uint32, rg.Items())
			copy(rec.Masks, words)
		case cntl.MaskAllDisabled:
			rec.Range = cntl.SSIDRange{}
		case cntl.MaskAllEnabled:
			word := allEnabledMsgWord
			if words, err := r.masks.MsgMask(rg); err == nil && len(words) > 0 {
				word = words[0]
			}
			rec.Masks = []uint32{word}
		}
		errs = append(errs, r.enqueue(p, rec.Encode()))
	}
	return errors.Join(errs...)
}

// SendEventMask sends the EVENT_MASK record. The mask bytes are only
// included when the event mask is valid.
func (r *Router) SendEventMask(p *Peripheral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireControl(p); err != nil {
		return err
	}
	return r.sendEventMask(p)
}

func (r *Router) sendEventMask(p *Peripheral) error {
	status := r.masks.EventMaskStatus()
	rec := cntl.EventMask{StreamID: cntl.DefaultStreamID, Status: status}
	if status == cntl.MaskAllEnabled || status == cntl.MaskValid {
		rec.Config = 1
	}
	if status == cntl.MaskValid {
		mask, err := r.masks.EventMask()
		if err != nil {
			return fmt.Errorf("event mask: %w", err)
		}
		rec.Mask = mask
	}
	return r.enqueue(p, rec.Encode())
}

// SetDiagMode sends DIAG_MODE, version 2 once p has a diag id.
func (r *Router) SetDiagMode(p *Peripheral, realTime bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setDiagMode(p, realTime)
}

func (r *Router) setDiagMode(p *Peripheral, realTime bool) error {
	if err := r.requireControl(p); err != nil {
		return err
	}
	return r.enqueue(p, cntl.NewDiagMode(realTime, p.DiagID()).Encode())
}

// SetBufferingMode sends BUFFERING_TX_MODE, version 2 once p has a diag id.
func (r *Router) SetBufferingMode(p *Peripheral, mode uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setBufferingMode(p, mode)
}

func (r *Router) setBufferingMode(p *Peripheral, mode uint8) error {
	if mode > cntl.BufferingCircular {
		return fmt.Errorf("%w: buffering mode %d", ErrInvalidArgument, mode)
	}
	if err := r.requireControl(p); err != nil {
		return err
	}
	return r.enqueue(p, cntl.NewBufferingMode(mode, p.DiagID()).Encode())
}
