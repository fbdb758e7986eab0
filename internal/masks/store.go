// Package masks holds the log, message and event mask state the router
// pushes to peripherals after feature negotiation.
package masks

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/danmuck/diagctl/internal/protocol/cntl"
)

var (
	ErrUnknownEquipID  = errors.New("masks: unknown log equipment id")
	ErrUnknownRange    = errors.New("masks: ssid outside configured ranges")
	ErrEventOutOfRange = errors.New("masks: event id beyond event_max_bits")
)

type logMask struct {
	lastItem uint32
	bits     []byte
}

// Store is an in-memory mask backend. The zero value is not usable; call
// New.
type Store struct {
	mu sync.RWMutex

	logStatus cntl.MaskStatus
	logMasks  map[uint8]*logMask

	msgStatus cntl.MaskStatus
	msgRanges []cntl.SSIDRange
	msgMasks  map[cntl.SSIDRange][]uint32

	eventStatus  cntl.MaskStatus
	eventMaxBits int
	eventMask    []byte
}

// New returns a store with every mask all-disabled.
func New() *Store {
	return &Store{
		logStatus:   cntl.MaskAllDisabled,
		logMasks:    make(map[uint8]*logMask),
		msgStatus:   cntl.MaskAllDisabled,
		msgMasks:    make(map[cntl.SSIDRange][]uint32),
		eventStatus: cntl.MaskAllDisabled,
	}
}

func (s *Store) SetLogStatus(status cntl.MaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logStatus = status
}

func (s *Store) LogMaskStatus() cntl.MaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logStatus
}

// AddEquipID makes equip part of the log mask with no items enabled.
func (s *Store) AddEquipID(equip uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logMasks[equip]; !ok {
		s.logMasks[equip] = &logMask{}
	}
}

// EnableLogItem sets item's bit in equip's log mask, growing the mask as
// needed.
func (s *Store) EnableLogItem(equip uint8, item uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.logMasks[equip]
	if !ok {
		m = &logMask{}
		s.logMasks[equip] = m
	}
	byteIdx := int(item / 8)
	if byteIdx >= len(m.bits) {
		m.bits = append(m.bits, make([]byte, byteIdx+1-len(m.bits))...)
	}
	m.bits[byteIdx] |= 1 << (item % 8)
	if item > m.lastItem {
		m.lastItem = item
	}
}

// LogEquipIDs returns the configured equipment ids in ascending order.
func (s *Store) LogEquipIDs() []uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint8, 0, len(s.logMasks))
	for id := range s.logMasks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Store) LogMask(equip uint8) (uint32, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.logMasks[equip]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %d", ErrUnknownEquipID, equip)
	}
	return m.lastItem, slices.Clone(m.bits), nil
}

func (s *Store) SetMsgStatus(status cntl.MaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgStatus = status
}

func (s *Store) MsgMaskStatus() cntl.MaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.msgStatus
}

// AddMsgRange adds an SSID range with every message level cleared.
func (s *Store) AddMsgRange(rg cntl.SSIDRange) error {
	if rg.Last < rg.First {
		return fmt.Errorf("masks: inverted ssid range %d-%d", rg.First, rg.Last)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.msgMasks[rg]; ok {
		return nil
	}
	s.msgRanges = append(s.msgRanges, rg)
	s.msgMasks[rg] = make([]uint32, rg.Items())
	return nil
}

// SetMsgLevels replaces the level bits for ssid in whichever range holds it.
func (s *Store) SetMsgLevels(ssid uint16, levels uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rg := range s.msgRanges {
		if ssid >= rg.First && ssid <= rg.Last {
			s.msgMasks[rg][ssid-rg.First] = levels
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnknownRange, ssid)
}

func (s *Store) MsgRanges() []cntl.SSIDRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.msgRanges)
}

func (s *Store) MsgMask(rg cntl.SSIDRange) ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	words, ok := s.msgMasks[rg]
	if !ok {
		return nil, fmt.Errorf("%w: %d-%d", ErrUnknownRange, rg.First, rg.Last)
	}
	return slices.Clone(words), nil
}

func (s *Store) SetEventStatus(status cntl.MaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventStatus = status
}

func (s *Store) EventMaskStatus() cntl.MaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventStatus
}

// SetEventMaxBits sizes the event mask. Existing bits below the new size
// are kept.
func (s *Store) SetEventMaxBits(bits int) {
	if bits < 0 {
		bits = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventMaxBits = bits
	size := (bits + 7) / 8
	resized := make([]byte, size)
	copy(resized, s.eventMask)
	s.eventMask = resized
}

func (s *Store) EnableEvent(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= s.eventMaxBits {
		return fmt.Errorf("%w: %d (max %d)", ErrEventOutOfRange, id, s.eventMaxBits)
	}
	s.eventMask[id/8] |= 1 << (id % 8)
	return nil
}

// EventMask returns the event bitmap, one bit per event id up to
// event_max_bits.
func (s *Store) EventMask() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.eventMask), nil
}
