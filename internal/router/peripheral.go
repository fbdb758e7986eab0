package router

import (
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PeripheralConfig describes a peripheral as the transport opened it.
type PeripheralConfig struct {
	Name string

	// Sockets marks a socket-transported peripheral.
	Sockets bool

	// CommandChannel is true when the peripheral has a separate command
	// channel, which makes it eligible for REQ_RSP.
	CommandChannel bool
}

// Peripheral is one connected diagnostic source. Its negotiated state is
// written by the router and may be read from any goroutine.
type Peripheral struct {
	name           string
	session        uuid.UUID
	sockets        bool
	commandChannel bool
	log            zerolog.Logger

	features    atomic.Uint32
	diagID      atomic.Uint32
	negotiated  atomic.Bool
	controlOpen atomic.Bool
	closed      atomic.Bool

	queue *controlQueue
}

func newPeripheral(cfg PeripheralConfig, logger zerolog.Logger) *Peripheral {
	p := &Peripheral{
		name:           strings.TrimSpace(cfg.Name),
		session:        uuid.New(),
		sockets:        cfg.Sockets,
		commandChannel: cfg.CommandChannel,
		queue:          newControlQueue(),
	}
	p.log = logger.With().
		Str("peripheral", p.name).
		Str("session", p.session.String()).
		Logger()
	p.controlOpen.Store(true)
	return p
}

func (p *Peripheral) Name() string { return p.name }

// Session identifies this connection of the peripheral; a reconnect under
// the same name gets a new one.
func (p *Peripheral) Session() uuid.UUID { return p.session }

// Features returns the negotiated feature mask, zero before negotiation.
func (p *Peripheral) Features() uint32 { return p.features.Load() }

func (p *Peripheral) HasFeature(bit uint32) bool {
	return p.features.Load()&bit != 0
}

// DiagID returns the peripheral's diag-source id, 0 while unassigned.
func (p *Peripheral) DiagID() uint8 { return uint8(p.diagID.Load()) }

func (p *Peripheral) Negotiated() bool { return p.negotiated.Load() }

func (p *Peripheral) ControlOpen() bool { return p.controlOpen.Load() && !p.closed.Load() }

// SetControlOpen records whether the transport currently has the control
// channel open. Records aimed at a peripheral without one are skipped.
func (p *Peripheral) SetControlOpen(open bool) { p.controlOpen.Store(open) }

func (p *Peripheral) Closed() bool { return p.closed.Load() }

// LocalFeatures is the feature set the router offers this peripheral.
func (p *Peripheral) LocalFeatures() uint32 {
	mask := baseFeatures
	if p.commandChannel {
		mask |= FeatureReqRsp
	}
	if p.sockets {
		mask |= FeatureSockets
	}
	return mask
}

// Drain hands every queued outbound record to the caller, oldest first.
func (p *Peripheral) Drain() [][]byte { return p.queue.drain() }

func (p *Peripheral) QueueLen() int { return p.queue.len() }
