package router

import "fmt"

// DiagIDApps is reserved for the router's own process. Ids handed out by
// the router start above it.
const DiagIDApps uint8 = 1

const maxDiagID = 0xff

// DiagIDEntry binds a process name to its diag-source id.
type DiagIDEntry struct {
	ID          uint8  `json:"id"`
	ProcessName string `json:"process_name"`
}

// diagIDRegistry never forgets an assignment for the life of the router.
type diagIDRegistry struct {
	entries []DiagIDEntry
	byName  map[string]uint8
	byID    map[uint8]string
	next    uint8
}

func newDiagIDRegistry() *diagIDRegistry {
	return &diagIDRegistry{
		byName: make(map[string]uint8),
		byID:   make(map[uint8]string),
		next:   DiagIDApps,
	}
}

// assign resolves name to its id, allocating one if needed. Version 3
// peripherals pick their own id; older versions take the next counter
// value. The counter never moves backwards, so it stays above every id
// seen so far. Once it saturates, the lowest free id above DiagIDApps is
// used instead.
func (r *diagIDRegistry) assign(version, requested uint32, name string) (uint8, bool, error) {
	if id, ok := r.byName[name]; ok {
		return id, false, nil
	}

	var id uint8
	if version >= 3 {
		if requested == 0 || requested > maxDiagID {
			return 0, false, fmt.Errorf("%w: %d requested by %q", ErrInvalidDiagID, requested, name)
		}
		id = uint8(requested)
	} else {
		if r.next < maxDiagID {
			id = r.next + 1
		} else if free, ok := r.lowestFree(); ok {
			id = free
		} else {
			return 0, false, fmt.Errorf("%w: %q", ErrDiagIDExhausted, name)
		}
	}

	if owner, taken := r.byID[id]; taken {
		return 0, false, fmt.Errorf("%w: id=%d owner=%q requester=%q", ErrDiagIDCollision, id, owner, name)
	}

	r.entries = append(r.entries, DiagIDEntry{ID: id, ProcessName: name})
	r.byName[name] = id
	r.byID[id] = name
	if id > r.next {
		r.next = id
	}
	return id, true, nil
}

func (r *diagIDRegistry) lowestFree() (uint8, bool) {
	for id := int(DiagIDApps) + 1; id <= maxDiagID; id++ {
		if _, taken := r.byID[uint8(id)]; !taken {
			return uint8(id), true
		}
	}
	return 0, false
}

func (r *diagIDRegistry) lookup(name string) (uint8, bool) {
	id, ok := r.byName[name]
	return id, ok
}

func (r *diagIDRegistry) list() []DiagIDEntry {
	out := make([]DiagIDEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
