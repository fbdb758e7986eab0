// Package inspect encodes router snapshots as CBOR for offline inspection.
package inspect

import (
	"fmt"
	"io"

	"github.com/danmuck/diagctl/internal/router"
	"github.com/fxamacker/cbor/v2"
)

var (
	snapshotEncMode cbor.EncMode
	snapshotDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	snapshotEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	snapshotDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot CBOR decoder mode: %v", err))
	}
}

func EncodeSnapshot(snap router.Snapshot) ([]byte, error) {
	return snapshotEncMode.Marshal(FromSnapshot(snap))
}

func DecodeSnapshot(data []byte) (router.Snapshot, error) {
	var doc Document
	if err := snapshotDecMode.Unmarshal(data, &doc); err != nil {
		return router.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return doc.Snapshot(), nil
}

// NewEncoder writes a stream of snapshot documents to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return snapshotEncMode.NewEncoder(w)
}

func NewDecoder(r io.Reader) *cbor.Decoder {
	return snapshotDecMode.NewDecoder(r)
}
