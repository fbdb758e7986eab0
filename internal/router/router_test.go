package router

import (
	"testing"

	"github.com/danmuck/diagctl/internal/protocol/cntl"
	"github.com/danmuck/diagctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestPackKeyRewritesWildcardCommand(t *testing.T) {
	testlog.Start(t)
	for _, subsys := range []uint8{0, 18, 50, 0xfe} {
		for _, code := range []uint16{0, 0x222, 0xffff} {
			require.Equal(t, PackKey(CmdSubsysDispatch, subsys, code), PackKey(0xff, subsys, code),
				"subsys=%d code=%d", subsys, code)
		}
	}
	require.Equal(t, uint32(0xffff007c), PackKey(0xff, 0xff, 0x7c))
	require.Equal(t, uint32(0x4b120222), PackKey(0xff, 18, 0x222))
}

func TestAddPeripheralRejectsEmptyAndDuplicateNames(t *testing.T) {
	testlog.Start(t)
	r := newTestRouter(t)
	_, err := r.AddPeripheral(PeripheralConfig{Name: "  "})
	require.ErrorIs(t, err, ErrInvalidArgument)

	p := addPeripheral(t, r, "modem")
	_, err = r.AddPeripheral(PeripheralConfig{Name: "modem"})
	require.ErrorIs(t, err, ErrDuplicatePeripheral)

	got, ok := r.Peripheral("modem")
	require.True(t, ok)
	require.Same(t, p, got)
	require.NotEqual(t, p.Session().String(), "")

	r.ClosePeripheral(p)
	_, ok = r.Peripheral("modem")
	require.False(t, ok)
	again := addPeripheral(t, r, "modem")
	require.NotEqual(t, p.Session(), again.Session())
}

func TestRegisterThenDeregisterRestoresNoOwner(t *testing.T) {
	testlog.Start(t)
	r := newTestRouter(t)
	p := addPeripheral(t, r, "modem")

	res := recv(t, r, p, registerRecord(0xff, 0xff, [2]uint16{10, 20}))
	require.Equal(t, 1, res.Handled)
	require.Same(t, p, r.Resolve(0xff, 0xff, 15).Peripheral)
	require.Nil(t, r.Resolve(0xff, 0xff, 21).Peripheral)

	recv(t, r, p, deregisterRecord(0xff, 0xff, [2]uint16{10, 20}))
	res2 := r.Resolve(0xff, 0xff, 15)
	require.Nil(t, res2.Peripheral)
	require.False(t, res2.Owned())
	require.Empty(t, r.Snapshot().Routes)
}

func TestDeregisterRequiresExactRange(t *testing.T) {
	testlog.Start(t)
	r := newTestRouter(t)
	p := addPeripheral(t, r, "modem")
	other := addPeripheral(t, r, "adsp")

	recv(t, r, p, registerRecord(0xff, 50, [2]uint16{0, 100}))
	recv(t, r, p, deregisterRecord(0xff, 50, [2]uint16{0, 50}))
	recv(t, r, other, deregisterRecord(0xff, 50, [2]uint16{0, 100}))

	require.Same(t, p, r.Resolve(CmdSubsysDispatch, 50, 10).Peripheral)
	require.Len(t, r.Snapshot().Routes, 1)
}

func TestOverlappingRoutesFirstRegisteredWins(t *testing.T) {
	testlog.Start(t)
	r := newTestRouter(t)
	a := addPeripheral(t, r, "modem")
	b := addPeripheral(t, r, "adsp")

	recv(t, r, a, registerRecord(0xff, 0xff, [2]uint16{10, 20}))
	recv(t, r, b, registerRecord(0xff, 0xff, [2]uint16{15, 30}))

	require.Same(t, a, r.Resolve(0xff, 0xff, 16).Peripheral)
	require.Same(t, b, r.Resolve(0xff, 0xff, 25).Peripheral)

	r.ClosePeripheral(a)
	require.Same(t, b, r.Resolve(0xff, 0xff, 16).Peripheral)
}

func TestClosePeripheralIsIdempotent(t *testing.T) {
	testlog.Start(t)
	r := newTestRouter(t)
	a := addPeripheral(t, r, "modem")
	b := addPeripheral(t, r, "adsp")
	recv(t, r, a, registerRecord(0xff, 0xff, [2]uint16{1, 5}), registerRecord(0xff, 18, [2]uint16{0, 9}))
	recv(t, r, b, registerRecord(0xff, 0xff, [2]uint16{6, 9}))
	recv(t, r, a, cntl.FeatureMask{Mask: allFeatures}.Encode())
	require.NotZero(t, a.QueueLen())

	r.ClosePeripheral(a)
	r.ClosePeripheral(a)
	r.ClosePeripheral(nil)

	require.True(t, a.Closed())
	require.Zero(t, a.QueueLen())
	require.Nil(t, r.Resolve(0xff, 0xff, 3).Peripheral)
	require.Same(t, b, r.Resolve(0xff, 0xff, 7).Peripheral)
	require.Len(t, r.Snapshot().Routes, 1)

	_, err := r.Recv(a, registerRecord(0xff, 0xff, [2]uint16{1, 1}))
	require.ErrorIs(t, err, ErrPeripheralClosed)
}

func TestRouteLimitKeepsEarlierRanges(t *testing.T) {
	testlog.Start(t)
	r := newTestRouter(t, func(o *Options) { o.MaxRoutes = 2 })
	p := addPeripheral(t, r, "modem")

	res := recv(t, r, p, registerRecord(0xff, 0xff, [2]uint16{1, 1}, [2]uint16{2, 2}, [2]uint16{3, 3}))
	require.Equal(t, 1, res.Rejected)
	require.Same(t, p, r.Resolve(0xff, 0xff, 2).Peripheral)
	require.Nil(t, r.Resolve(0xff, 0xff, 3).Peripheral)
	require.Len(t, r.Snapshot().Routes, 2)
}

func TestRecvStopsAtTruncatedRecord(t *testing.T) {
	testlog.Start(t)
	r := newTestRouter(t)
	p := addPeripheral(t, r, "modem")

	feature := cntl.FeatureMask{Mask: allFeatures}.Encode()
	buf := append(registerRecord(0xff, 0xff, [2]uint16{10, 20}), feature[:len(feature)-3]...)

	res, err := r.Recv(p, buf)
	require.ErrorIs(t, err, cntl.ErrTruncated)
	require.True(t, res.Truncated)
	require.Equal(t, 1, res.Records)
	require.Equal(t, 1, res.Handled)
	require.Same(t, p, r.Resolve(0xff, 0xff, 12).Peripheral)
	require.False(t, p.Negotiated())
	require.Zero(t, p.QueueLen())

	// the peripheral stays usable
	res = recv(t, r, p, feature)
	require.Equal(t, 1, res.Handled)
	require.True(t, p.Negotiated())
}

func TestRecvSkipsUnknownAndMalformedRecords(t *testing.T) {
	testlog.Start(t)
	r := newTestRouter(t)
	p := addPeripheral(t, r, "modem")

	shortRegister := cntl.Encode(cntl.CmdRegister, []byte{1, 0, 0})
	res := recv(t, r, p,
		cntl.Encode(99, []byte{1, 2, 3}),
		cntl.Encode(cntl.CmdNumPresets, []byte{4}),
		shortRegister,
		registerRecord(0xff, 0xff, [2]uint16{1, 2}),
		[]byte{1, 2, 3},
	)
	require.Equal(t, RecvResult{Records: 4, Handled: 1, Ignored: 1, Rejected: 1, Unknown: 1}, res)
	require.Same(t, p, r.Resolve(0xff, 0xff, 1).Peripheral)
}

func TestRegisterWithWideSubsysAddsNoRoute(t *testing.T) {
	testlog.Start(t)
	r := newTestRouter(t)
	p := addPeripheral(t, r, "modem")

	res := recv(t, r, p, registerRecord(0xff, 0x1ff, [2]uint16{1, 2}))
	require.Equal(t, 1, res.Rejected)
	require.Nil(t, r.Resolve(0xff, 0xff, 1).Peripheral)
	require.Empty(t, r.Snapshot().Routes)
}

func TestSnapshotListsState(t *testing.T) {
	testlog.Start(t)
	r := newTestRouter(t)
	p := addPeripheral(t, r, "modem")
	recv(t, r, p, cntl.FeatureMask{Mask: allFeatures}.Encode())
	recv(t, r, p, registerRecord(0xff, 18, [2]uint16{0x100, 0x1ff}))
	recv(t, r, p, diagIDRecord(1, 0, nil, "modem/root"))

	snap := r.Snapshot()
	require.Len(t, snap.Peripherals, 1)
	ps := snap.Peripherals[0]
	require.Equal(t, "modem", ps.Name)
	require.Equal(t, p.Session().String(), ps.Session)
	require.Equal(t, uint8(2), ps.DiagID)
	require.True(t, ps.Negotiated)
	require.Contains(t, ps.FeatureNames, "DIAG_ID")
	require.Equal(t, p.QueueLen(), ps.Queued)
	require.Equal(t, []RouteState{{First: 0x4b120100, Last: 0x4b1201ff, Owner: "modem"}}, snap.Routes)
	require.Equal(t, []DiagIDEntry{{ID: 2, ProcessName: "modem/root"}}, snap.DiagIDs)
	require.False(t, snap.TakenAt.IsZero())
}
