package router

import "github.com/danmuck/diagctl/internal/protocol/cntl"

// MaskSource is the mask backend the router reads when it pushes masks to
// a peripheral. Getters are only consulted for a kind whose status is
// cntl.MaskValid, except MsgMask which also supplies the all-enabled word.
type MaskSource interface {
	LogMaskStatus() cntl.MaskStatus
	LogEquipIDs() []uint8
	LogMask(equipID uint8) (lastItem uint32, mask []byte, err error)

	MsgMaskStatus() cntl.MaskStatus
	MsgRanges() []cntl.SSIDRange
	MsgMask(rg cntl.SSIDRange) ([]uint32, error)

	EventMaskStatus() cntl.MaskStatus
	EventMask() ([]byte, error)
}

// disabledMasks reports every mask kind as all-disabled.
type disabledMasks struct{}

func (disabledMasks) LogMaskStatus() cntl.MaskStatus { return cntl.MaskAllDisabled }

func (disabledMasks) LogEquipIDs() []uint8 { return nil }

func (disabledMasks) LogMask(uint8) (uint32, []byte, error) { return 0, nil, nil }

func (disabledMasks) MsgMaskStatus() cntl.MaskStatus { return cntl.MaskAllDisabled }

func (disabledMasks) MsgRanges() []cntl.SSIDRange { return nil }

func (disabledMasks) MsgMask(cntl.SSIDRange) ([]uint32, error) { return nil, nil }

func (disabledMasks) EventMaskStatus() cntl.MaskStatus { return cntl.MaskAllDisabled }

func (disabledMasks) EventMask() ([]byte, error) { return nil, nil }
