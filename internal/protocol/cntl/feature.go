package cntl

import (
	"encoding/binary"
	"fmt"
)

// FeatureMask is the FEATURE_MASK payload in both directions.
type FeatureMask struct {
	Mask uint32
}

// DecodeFeatureMask reads {mask_len, mask[mask_len]}. Only the first four
// mask bytes carry defined feature bits; shorter masks are zero-extended.
func DecodeFeatureMask(payload []byte) (FeatureMask, error) {
	r := newFieldReader(payload)
	maskLen := r.u32()
	if r.err != nil {
		return FeatureMask{}, fmt.Errorf("feature_mask: %w", r.err)
	}
	if uint64(maskLen) > uint64(r.remaining()) {
		return FeatureMask{}, fmt.Errorf("%w: feature_mask mask_len=%d payload=%d", ErrShortRecord, maskLen, len(payload))
	}
	return FeatureMask{Mask: leUint32(r.bytes(int(maskLen)))}, nil
}

func (f FeatureMask) Encode() []byte {
	w := newFieldWriter(8)
	w.u32(4)
	w.u32(f.Mask)
	return w.record(CmdFeatureMask)
}

// leUint32 reads up to four little-endian bytes.
func leUint32(b []byte) uint32 {
	var buf [4]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint32(buf[:])
}
