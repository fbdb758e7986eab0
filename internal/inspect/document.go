package inspect

import (
	"time"

	"github.com/danmuck/diagctl/internal/router"
)

// Document is the CBOR form of router.Snapshot. Integer keys keep the
// encoding compact; they are part of the file format and must not be
// renumbered.
type Document struct {
	TakenAt     time.Time    `cbor:"1,keyasint"`
	Peripherals []Peripheral `cbor:"2,keyasint,omitempty"`
	Routes      []Route      `cbor:"3,keyasint,omitempty"`
	DiagIDs     []DiagID     `cbor:"4,keyasint,omitempty"`
	HWAccel     HWAccel      `cbor:"5,keyasint"`
}

type Peripheral struct {
	Name        string `cbor:"1,keyasint"`
	Session     string `cbor:"2,keyasint"`
	DiagID      uint8  `cbor:"3,keyasint,omitempty"`
	Features    uint32 `cbor:"4,keyasint"`
	Negotiated  bool   `cbor:"5,keyasint"`
	ControlOpen bool   `cbor:"6,keyasint"`
	Queued      int    `cbor:"7,keyasint"`
}

type Route struct {
	First uint32 `cbor:"1,keyasint"`
	Last  uint32 `cbor:"2,keyasint"`
	Owner string `cbor:"3,keyasint"`
}

type DiagID struct {
	ID          uint8  `cbor:"1,keyasint"`
	ProcessName string `cbor:"2,keyasint"`
}

type HWAccel struct {
	Feature  [router.HWAccelFeatureCount]uint32 `cbor:"1,keyasint"`
	Status   [router.HWAccelFeatureCount]uint32 `cbor:"2,keyasint"`
	HWBacked [router.HWAccelFeatureCount]bool   `cbor:"3,keyasint"`
}

func FromSnapshot(snap router.Snapshot) Document {
	doc := Document{
		TakenAt: snap.TakenAt,
		HWAccel: HWAccel{
			Feature:  snap.HWAccel.Feature,
			Status:   snap.HWAccel.Status,
			HWBacked: snap.HWAccel.HWBacked,
		},
	}
	for _, p := range snap.Peripherals {
		doc.Peripherals = append(doc.Peripherals, Peripheral{
			Name:        p.Name,
			Session:     p.Session,
			DiagID:      p.DiagID,
			Features:    p.Features,
			Negotiated:  p.Negotiated,
			ControlOpen: p.ControlOpen,
			Queued:      p.Queued,
		})
	}
	for _, r := range snap.Routes {
		doc.Routes = append(doc.Routes, Route{First: r.First, Last: r.Last, Owner: r.Owner})
	}
	for _, d := range snap.DiagIDs {
		doc.DiagIDs = append(doc.DiagIDs, DiagID{ID: d.ID, ProcessName: d.ProcessName})
	}
	return doc
}

// Snapshot converts the document back. Feature names are derived from the
// feature mask rather than stored.
func (doc Document) Snapshot() router.Snapshot {
	snap := router.Snapshot{
		TakenAt:     doc.TakenAt,
		Peripherals: make([]router.PeripheralState, 0, len(doc.Peripherals)),
		Routes:      make([]router.RouteState, 0, len(doc.Routes)),
		DiagIDs:     make([]router.DiagIDEntry, 0, len(doc.DiagIDs)),
		HWAccel: router.ArbiterState{
			Feature:  doc.HWAccel.Feature,
			Status:   doc.HWAccel.Status,
			HWBacked: doc.HWAccel.HWBacked,
		},
	}
	for _, p := range doc.Peripherals {
		snap.Peripherals = append(snap.Peripherals, router.PeripheralState{
			Name:         p.Name,
			Session:      p.Session,
			DiagID:       p.DiagID,
			Features:     p.Features,
			FeatureNames: router.FeatureNames(p.Features),
			Negotiated:   p.Negotiated,
			ControlOpen:  p.ControlOpen,
			Queued:       p.Queued,
		})
	}
	for _, r := range doc.Routes {
		snap.Routes = append(snap.Routes, router.RouteState{First: r.First, Last: r.Last, Owner: r.Owner})
	}
	for _, d := range doc.DiagIDs {
		snap.DiagIDs = append(snap.DiagIDs, router.DiagIDEntry{ID: d.ID, ProcessName: d.ProcessName})
	}
	return snap
}
