package router

import "time"

type PeripheralState struct {
	Name         string   `json:"name"`
	Session      string   `json:"session"`
	DiagID       uint8    `json:"diag_id"`
	Features     uint32   `json:"features"`
	FeatureNames []string `json:"feature_names"`
	Negotiated   bool     `json:"negotiated"`
	ControlOpen  bool     `json:"control_open"`
	Queued       int      `json:"queued"`
}

type RouteState struct {
	First uint32 `json:"first"`
	Last  uint32 `json:"last"`
	Owner string `json:"owner"`
}

// Snapshot is a point-in-time copy of router state. Routes are listed in
// lookup order.
type Snapshot struct {
	TakenAt     time.Time         `json:"taken_at"`
	Peripherals []PeripheralState `json:"peripherals"`
	Routes      []RouteState      `json:"routes"`
	DiagIDs     []DiagIDEntry     `json:"diag_ids"`
	HWAccel     ArbiterState      `json:"hw_accel"`
}

func (r *Router) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		TakenAt:     time.Now().UTC(),
		Peripherals: make([]PeripheralState, 0, len(r.peripherals)),
		Routes:      make([]RouteState, 0, r.routes.len()),
		DiagIDs:     r.diagIDs.list(),
		HWAccel:     r.arbiter.state(),
	}
	for _, p := range r.peripherals {
		snap.Peripherals = append(snap.Peripherals, PeripheralState{
			Name:         p.name,
			Session:      p.session.String(),
			DiagID:       p.DiagID(),
			Features:     p.Features(),
			FeatureNames: FeatureNames(p.Features()),
			Negotiated:   p.Negotiated(),
			ControlOpen:  p.ControlOpen(),
			Queued:       p.QueueLen(),
		})
	}
	for _, e := range r.routes.entries {
		snap.Routes = append(snap.Routes, RouteState{First: e.First, Last: e.Last, Owner: e.Owner.name})
	}
	return snap
}
