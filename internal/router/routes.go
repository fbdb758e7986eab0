package router

import "fmt"

// Command codes that carry a subsystem id and a 16-bit subsystem command.
const (
	CmdSubsysDispatch   uint8 = 75
	CmdSubsysDispatchV2 uint8 = 128
	cmdWildcard         uint8 = 0xff
)

// DefaultMaxRoutes bounds the routing table when Options leaves it unset.
const DefaultMaxRoutes = 4096

// PackKey folds a (command, subsystem, subsystem command) triple into the
// routing key space. A wildcard command with a concrete subsystem addresses
// a subsystem command and packs under CmdSubsysDispatch.
func PackKey(cmd, subsys uint8, code uint16) uint32 {
	if cmd == cmdWildcard && subsys != cmdWildcard {
		cmd = CmdSubsysDispatch
	}
	return uint32(cmd)<<24 | uint32(subsys)<<16 | uint32(code)
}

// RouteEntry maps the inclusive key range [First, Last] to its owner.
type RouteEntry struct {
	First uint32
	Last  uint32
	Owner *Peripheral
}

func (e RouteEntry) contains(key uint32) bool {
	return e.First <= key && key <= e.Last
}

func (e RouteEntry) String() string {
	return fmt.Sprintf("0x%08x-0x%08x", e.First, e.Last)
}

// routeTable keeps entries in registration order. Overlapping ranges are
// allowed; lookups return the earliest registered match.
type routeTable struct {
	entries []RouteEntry
	limit   int
}

func newRouteTable(limit int) *routeTable {
	if limit <= 0 {
		limit = DefaultMaxRoutes
	}
	return &routeTable{limit: limit}
}

func (t *routeTable) add(owner *Peripheral, first, last uint32) error {
	if len(t.entries) >= t.limit {
		return fmt.Errorf("%w: limit=%d", ErrRouteLimit, t.limit)
	}
	t.entries = append(t.entries, RouteEntry{First: first, Last: last, Owner: owner})
	return nil
}

// remove deletes every entry owned by owner spanning exactly [first, last].
func (t *routeTable) remove(owner *Peripheral, first, last uint32) int {
	return t.filter(func(e RouteEntry) bool {
		return e.Owner == owner && e.First == first && e.Last == last
	})
}

func (t *routeTable) removeOwner(owner *Peripheral) int {
	return t.filter(func(e RouteEntry) bool {
		return e.Owner == owner
	})
}

func (t *routeTable) filter(drop func(RouteEntry) bool) int {
	kept := t.entries[:0]
	removed := 0
	for _, e := range t.entries {
		if drop(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	clear(t.entries[len(kept):])
	t.entries = kept
	return removed
}

func (t *routeTable) lookup(key uint32) *Peripheral {
	for _, e := range t.entries {
		if e.contains(key) {
			return e.Owner
		}
	}
	return nil
}

func (t *routeTable) len() int {
	return len(t.entries)
}

func (t *routeTable) list() []RouteEntry {
	out := make([]RouteEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
