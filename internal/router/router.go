package router

import (
	"fmt"
	"strings"
	"sync"

	"github.com/danmuck/diagctl/internal/observability"
	"github.com/danmuck/diagctl/internal/protocol/cntl"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger

	// Masks defaults to a backend that reports every mask all-disabled.
	Masks MaskSource

	// RealTime selects the diag mode sent after negotiation.
	RealTime bool

	// BufferingMode is sent in BUFFERING_TX_MODE after negotiation.
	BufferingMode uint8

	MaxRoutes    int
	MaxRecordLen int
}

func DefaultOptions() Options {
	return Options{
		RealTime:      true,
		BufferingMode: cntl.BufferingStreaming,
		MaxRoutes:     DefaultMaxRoutes,
		MaxRecordLen:  cntl.MaxRecordLen,
	}
}

// Router owns the routing table, the diag-id registry, the arbiter and the
// set of open peripherals.
type Router struct {
	mu sync.Mutex

	log          zerolog.Logger
	masks        MaskSource
	realTime     bool
	bufferMode   uint8
	maxRecordLen int

	peripherals []*Peripheral
	routes      *routeTable
	diagIDs     *diagIDRegistry
	arbiter     arbiter
	local       map[uint32]localHandler
}

func New(opts Options) *Router {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	masks := opts.Masks
	if masks == nil {
		masks = disabledMasks{}
	}
	maxRecordLen := opts.MaxRecordLen
	if maxRecordLen <= 0 {
		maxRecordLen = cntl.MaxRecordLen
	}
	r := &Router{
		log:          logger.With().Str("component", "router").Logger(),
		masks:        masks,
		realTime:     opts.RealTime,
		bufferMode:   opts.BufferingMode,
		maxRecordLen: maxRecordLen,
		routes:       newRouteTable(opts.MaxRoutes),
		diagIDs:      newDiagIDRegistry(),
	}
	r.local = r.localHandlers()
	observability.RegisterMetrics()
	return r
}

// AddPeripheral opens a peripheral. Names are unique among open
// peripherals.
func (r *Router) AddPeripheral(cfg PeripheralConfig) (*Peripheral, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty peripheral name", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.peripherals {
		if p.name == name {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePeripheral, name)
		}
	}
	p := newPeripheral(cfg, r.log)
	r.peripherals = append(r.peripherals, p)
	p.log.Info().
		Bool("sockets", p.sockets).
		Bool("command_channel", p.commandChannel).
		Msg("peripheral opened")
	return p, nil
}

func (r *Router) Peripheral(name string) (*Peripheral, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.peripherals {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// Peripherals returns the open peripherals in the order they were added.
func (r *Router) Peripherals() []*Peripheral {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Peripheral, len(r.peripherals))
	copy(out, r.peripherals)
	return out
}

// ClosePeripheral drops p's routes and pending output. Closing an already
// closed peripheral is a no-op.
func (r *Router) ClosePeripheral(p *Peripheral) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	removed := r.routes.removeOwner(p)
	dropped := p.queue.close()
	for i, other := range r.peripherals {
		if other == p {
			r.peripherals = append(r.peripherals[:i], r.peripherals[i+1:]...)
			break
		}
	}
	observability.SetRouteEntries(r.routes.len())
	p.log.Info().
		Int("routes_removed", removed).
		Int("records_dropped", dropped).
		Msg("peripheral closed")
}

// RecvResult tallies one Recv call.
type RecvResult struct {
	Records   int
	Handled   int
	Ignored   int
	Rejected  int
	Unknown   int
	Truncated bool
}

// Recv processes every complete control record in buf from p, in order. A
// record whose length runs past the end of buf stops processing and is
// reported through the returned error wrapping cntl.ErrTruncated; records
// before it have taken effect. Malformed and unknown records are logged and
// skipped.
func (r *Router) Recv(p *Peripheral, buf []byte) (RecvResult, error) {
	if p == nil {
		return RecvResult{}, fmt.Errorf("%w: nil peripheral", ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.closed.Load() {
		return RecvResult{}, ErrPeripheralClosed
	}

	var res RecvResult
	n, err := cntl.Walk(buf, func(rec cntl.Record) {
		outcome := r.dispatch(p, rec)
		observability.RecordControlRecord(p.name, cntl.CommandName(rec.Header.Command), outcome)
		switch outcome {
		case observability.OutcomeHandled:
			res.Handled++
		case observability.OutcomeIgnored:
			res.Ignored++
		case observability.OutcomeRejected:
			res.Rejected++
		case observability.OutcomeUnknown:
			res.Unknown++
		}
	})
	res.Records = n
	if err != nil {
		res.Truncated = true
		observability.RecordTruncated(p.name)
		p.log.Warn().Err(err).Int("records", n).Msg("truncated control buffer")
		return res, err
	}
	return res, nil
}

func (r *Router) dispatch(p *Peripheral, rec cntl.Record) string {
	var err error
	switch rec.Header.Command {
	case cntl.CmdRegister:
		err = r.handleRegister(p, rec.Payload)
	case cntl.CmdDeregister:
		err = r.handleDeregister(p, rec.Payload)
	case cntl.CmdFeatureMask:
		err = r.handleFeatureMask(p, rec.Payload)
	case cntl.CmdDiagID:
		err = r.handleDiagID(p, rec.Payload)
	case cntl.CmdNumPresets:
		return observability.OutcomeIgnored
	default:
		p.log.Warn().
			Uint32("command", rec.Header.Command).
			Hex("payload", rec.Payload).
			Msg("unsupported control record")
		return observability.OutcomeUnknown
	}
	if err != nil {
		p.log.Warn().Err(err).
			Str("command", cntl.CommandName(rec.Header.Command)).
			Msg("control record rejected")
		return observability.OutcomeRejected
	}
	return observability.OutcomeHandled
}

// enqueue queues rec for p, enforcing the record size bound.
func (r *Router) enqueue(p *Peripheral, rec []byte) error {
	h, err := cntl.DecodeHeader(rec)
	if err != nil {
		return err
	}
	if len(rec) > r.maxRecordLen {
		return fmt.Errorf("%w: %s is %d bytes, limit %d",
			cntl.ErrRecordTooLarge, cntl.CommandName(h.Command), len(rec), r.maxRecordLen)
	}
	if err := p.queue.push(rec); err != nil {
		return err
	}
	observability.RecordQueued(p.name, cntl.CommandName(h.Command))
	return nil
}
