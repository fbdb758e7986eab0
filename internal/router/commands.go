package router

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/diagctl/internal/protocol/cntl"
)

// Router-owned diagnostic commands, all under the diag subsystem.
const (
	DiagSubsys       uint8  = 18
	DiagCmdGetDiagID uint16 = 0x222
	DiagCmdHWAccel   uint16 = 0x224

	// MaxResponseLen bounds a locally built command response.
	MaxResponseLen = 16 * 1024
)

type localHandler func(pkt []byte) ([]byte, error)

func (r *Router) localHandlers() map[uint32]localHandler {
	return map[uint32]localHandler{
		PackKey(CmdSubsysDispatch, DiagSubsys, DiagCmdGetDiagID): r.handleDiagIDQuery,
		PackKey(CmdSubsysDispatch, DiagSubsys, DiagCmdHWAccel):   r.handleHWAccelCommand,
	}
}

// CommandKey derives the routing key of a raw diagnostic command.
// Subsystem dispatch commands key on their subsystem and 16-bit subsystem
// command; every other command keys on its command byte alone.
func CommandKey(pkt []byte) (uint32, error) {
	if len(pkt) == 0 {
		return 0, ErrShortCommand
	}
	cmd := pkt[0]
	if cmd != CmdSubsysDispatch && cmd != CmdSubsysDispatchV2 {
		return PackKey(cmdWildcard, cmdWildcard, uint16(cmd)), nil
	}
	if len(pkt) < cntl.DiagCmdHeaderLen {
		return 0, fmt.Errorf("%w: subsystem command needs %d bytes, have %d",
			ErrShortCommand, cntl.DiagCmdHeaderLen, len(pkt))
	}
	return uint32(cmd)<<24 | uint32(pkt[1])<<16 | uint32(binary.LittleEndian.Uint16(pkt[2:4])), nil
}

// Resolution says who answers a diagnostic command. Peripheral is nil when
// no registered route matches; Local is then set if the router handles the
// command itself.
type Resolution struct {
	Key        uint32
	Peripheral *Peripheral
	Local      bool
}

// Owned reports whether anything answers the command.
func (res Resolution) Owned() bool {
	return res.Peripheral != nil || res.Local
}

// Resolve looks up the triple in the routing table. Direct commands are
// addressed as (0xff, 0xff, cmd). Among overlapping routes the earliest
// registered wins; router-local handlers are consulted only when no
// peripheral route matches.
func (r *Router) Resolve(cmd, subsys uint8, code uint16) Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(PackKey(cmd, subsys, code))
}

// ResolveCommand resolves a raw diagnostic command packet.
func (r *Router) ResolveCommand(pkt []byte) (Resolution, error) {
	key, err := CommandKey(pkt)
	if err != nil {
		return Resolution{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(key), nil
}

func (r *Router) resolve(key uint32) Resolution {
	res := Resolution{Key: key, Peripheral: r.routes.lookup(key)}
	if res.Peripheral == nil {
		_, res.Local = r.local[key]
	}
	return res
}

// HandleCommand runs the router's own handler for pkt and returns the
// response packet.
func (r *Router) HandleCommand(pkt []byte) ([]byte, error) {
	key, err := CommandKey(pkt)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	handler, ok := r.local[key]
	if !ok {
		return nil, fmt.Errorf("%w: key=0x%08x", ErrUnknownCommand, key)
	}
	return handler(pkt)
}

func (r *Router) handleDiagIDQuery(pkt []byte) ([]byte, error) {
	q, err := cntl.DecodeDiagIDQuery(pkt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShortCommand, err)
	}
	entries := r.diagIDs.list()
	infos := make([]cntl.DiagIDInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, cntl.DiagIDInfo{ID: e.ID, ProcessName: e.ProcessName})
	}
	resp, n := cntl.EncodeDiagIDQueryResponse(q, infos, MaxResponseLen)
	if n < len(infos) {
		r.log.Warn().Int("entries", len(infos)).Int("sent", n).Msg("diag id query response truncated")
	}
	return resp, nil
}

// handleHWAccelCommand answers with the request echoed, a status code and
// the resulting grant mask.
func (r *Router) handleHWAccelCommand(pkt []byte) ([]byte, error) {
	cmd, err := cntl.DecodeHWAccelCommand(pkt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShortCommand, err)
	}
	resp := cmd
	granted, err := r.hwAccelRequest(HWAccelRequest{
		Operation:  HWAccelOp(cmd.Operation),
		Type:       cmd.Type,
		Version:    cmd.TypeVer,
		DiagIDMask: cmd.DiagIDMask,
	})
	if err != nil {
		resp.Status = cntl.HWAccelStatusInvalid
		resp.DiagIDMask = 0
	} else {
		resp.Status = cntl.HWAccelStatusOK
		resp.DiagIDMask = granted
	}
	return resp.Encode(), nil
}

// DiagIDs lists the registered diag-source ids in assignment order.
func (r *Router) DiagIDs() []DiagIDEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.diagIDs.list()
}

func (r *Router) LookupDiagID(processName string) (uint8, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.diagIDs.lookup(processName)
}
