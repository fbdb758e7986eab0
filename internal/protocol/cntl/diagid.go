package cntl

import "fmt"

// DIAG_ID negotiation versions.
const (
	DiagIDVersion1 uint32 = 1
	DiagIDVersion2 uint32 = 2
	DiagIDVersion3 uint32 = 3
)

// MaxProcessNameLen bounds a process name, excluding the terminator; the
// on-wire length byte includes the terminator.
const MaxProcessNameLen = 254

const (
	diagIDFixedLen        = 4 + 4
	diagIDFeatureFixedLen = diagIDFixedLen + 4
)

// DiagIDRequest is the decoded DIAG_ID record. FeatureMask is nil unless the
// record was decoded with the feature-mask layout (version 2 and later, when
// the sending peripheral negotiated that capability). DiagID is only
// meaningful at version 3, where the peripheral assigns it.
type DiagIDRequest struct {
	Version     uint32
	DiagID      uint32
	FeatureMask []byte
	ProcessName string
}

// HasFeatureMask reports whether the request carried a feature-mask blob.
func (d DiagIDRequest) HasFeatureMask() bool {
	return d.FeatureMask != nil
}

// FeatureBits returns the low 32 bits of the feature-mask blob.
func (d DiagIDRequest) FeatureBits() uint32 {
	return leUint32(d.FeatureMask)
}

// DecodeDiagID decodes a DIAG_ID payload. withFeatureMask selects the
// {feature_len, feature_mask} layout; it only applies from version 2 on.
func DecodeDiagID(payload []byte, withFeatureMask bool) (DiagIDRequest, error) {
	r := newFieldReader(payload)
	req := DiagIDRequest{
		Version: r.u32(),
		DiagID:  r.u32(),
	}
	if r.err != nil {
		return DiagIDRequest{}, fmt.Errorf("diag_id: %w", r.err)
	}
	if withFeatureMask && req.Version >= DiagIDVersion2 {
		featureLen := r.u32()
		if r.err != nil {
			return DiagIDRequest{}, fmt.Errorf("diag_id v%d: %w", req.Version, r.err)
		}
		if uint64(featureLen) > uint64(r.remaining()) {
			return DiagIDRequest{}, fmt.Errorf("%w: diag_id feature_len=%d payload=%d", ErrShortRecord, featureLen, len(payload))
		}
		req.FeatureMask = r.bytes(int(featureLen))
		if req.FeatureMask == nil {
			req.FeatureMask = []byte{}
		}
	}
	if r.remaining() == 0 {
		return DiagIDRequest{}, fmt.Errorf("diag_id v%d: %w", req.Version, ErrShortRecord)
	}
	name, err := r.cstring()
	if err != nil {
		return DiagIDRequest{}, fmt.Errorf("diag_id v%d: %w", req.Version, err)
	}
	if name == "" {
		return DiagIDRequest{}, ErrEmptyName
	}
	if len(name) > MaxProcessNameLen {
		return DiagIDRequest{}, fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(name))
	}
	req.ProcessName = name
	return req, nil
}

// Encode returns the enveloped DIAG_ID request, laid out the way a
// peripheral sends it.
func (d DiagIDRequest) Encode() []byte {
	w := newFieldWriter(diagIDFeatureFixedLen + len(d.FeatureMask) + len(d.ProcessName) + 1)
	w.u32(d.Version)
	w.u32(d.DiagID)
	if d.FeatureMask != nil && d.Version >= DiagIDVersion2 {
		w.u32(uint32(len(d.FeatureMask)))
		w.raw(d.FeatureMask)
	}
	w.cstring(d.ProcessName)
	return w.record(CmdDiagID)
}

// DiagIDResponse is the router's answer to a DIAG_ID request. It always uses
// the version 1 layout.
type DiagIDResponse struct {
	DiagID      uint32
	ProcessName string
}

func (d DiagIDResponse) Encode() []byte {
	w := newFieldWriter(diagIDFixedLen + len(d.ProcessName) + 1)
	w.u32(d.DiagID)
	w.u32(DiagIDVersion1)
	w.cstring(d.ProcessName)
	return w.record(CmdDiagID)
}

func DecodeDiagIDResponse(payload []byte) (DiagIDResponse, error) {
	r := newFieldReader(payload)
	resp := DiagIDResponse{DiagID: r.u32()}
	version := r.u32()
	if r.err != nil {
		return DiagIDResponse{}, fmt.Errorf("diag_id response: %w", r.err)
	}
	if version != DiagIDVersion1 {
		return DiagIDResponse{}, fmt.Errorf("diag_id response: unexpected version %d", version)
	}
	name, err := r.cstring()
	if err != nil {
		return DiagIDResponse{}, fmt.Errorf("diag_id response: %w", err)
	}
	resp.ProcessName = name
	return resp, nil
}
