package cntl

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/diagctl/internal/testutil/testlog"
)

func TestWalkDeliversRecordsInOrder(t *testing.T) {
	testlog.Start(t)
	buf := append(FeatureMask{Mask: 0xff}.Encode(), Encode(CmdNumPresets, []byte{4})...)
	var got []uint32
	n, err := Walk(buf, func(rec Record) {
		got = append(got, rec.Header.Command)
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if n != 2 || len(got) != 2 || got[0] != CmdFeatureMask || got[1] != CmdNumPresets {
		t.Fatalf("unexpected records n=%d got=%v", n, got)
	}
}

func TestWalkStopsAtTruncatedRecord(t *testing.T) {
	testlog.Start(t)
	good := FeatureMask{Mask: 1}.Encode()
	bad := EncodeHeader(Header{Command: CmdRegister, Length: 64})
	bad = append(bad, 1, 2, 3)
	buf := append(append([]byte{}, good...), bad...)

	calls := 0
	n, err := Walk(buf, func(rec Record) {
		calls++
		if len(rec.Payload) != int(rec.Header.Length) {
			t.Fatalf("payload length mismatch: %d != %d", len(rec.Payload), rec.Header.Length)
		}
	})
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if n != 1 || calls != 1 {
		t.Fatalf("expected one record before truncation, n=%d calls=%d", n, calls)
	}
}

func TestWalkIgnoresShortTail(t *testing.T) {
	testlog.Start(t)
	buf := append(FeatureMask{Mask: 1}.Encode(), 0xAA, 0xBB, 0xCC)
	n, err := Walk(buf, func(Record) {})
	if err != nil || n != 1 {
		t.Fatalf("expected 1 record and no error, n=%d err=%v", n, err)
	}
}

func TestWalkHugeLengthDoesNotOverflow(t *testing.T) {
	testlog.Start(t)
	buf := EncodeHeader(Header{Command: CmdDiagID, Length: ^uint32(0)})
	_, err := Walk(buf, func(Record) { t.Fatalf("callback must not run") })
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestEncodeHeaderLayoutIsLittleEndian(t *testing.T) {
	testlog.Start(t)
	got := Encode(CmdDiagID, []byte{0xAB})
	want := []byte{33, 0, 0, 0, 1, 0, 0, 0, 0xAB}
	if !bytes.Equal(got, want) {
		t.Fatalf("unexpected encoding: % x", got)
	}
}

func TestCommandName(t *testing.T) {
	testlog.Start(t)
	if got := CommandName(CmdDeregister); got != "deregister" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := CommandName(99); got != "unknown_99" {
		t.Fatalf("unexpected name %q", got)
	}
}
