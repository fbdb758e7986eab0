package cntl

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/diagctl/internal/testutil/testlog"
)

func TestDiagIDQueryResponseLayout(t *testing.T) {
	testlog.Start(t)
	q, err := DecodeDiagIDQuery([]byte{75, 18, 0x22, 0x02, 1})
	if err != nil {
		t.Fatalf("decode query: %v", err)
	}
	if q.Header.Code != 0x222 || q.Version != 1 {
		t.Fatalf("unexpected query: %+v", q)
	}
	resp, n := EncodeDiagIDQueryResponse(q, []DiagIDInfo{{ID: 2, ProcessName: "modem"}, {ID: 3, ProcessName: "adsp"}}, 1024)
	if n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
	want := []byte{75, 18, 0x22, 0x02, 1, 2, 2, 6, 'm', 'o', 'd', 'e', 'm', 0, 3, 5, 'a', 'd', 's', 'p', 0}
	if string(resp) != string(want) {
		t.Fatalf("unexpected response: % x", resp)
	}
	_, entries, err := DecodeDiagIDQueryResponse(resp)
	if err != nil || len(entries) != 2 || entries[1].ProcessName != "adsp" {
		t.Fatalf("unexpected decode: %+v err=%v", entries, err)
	}
}

func TestDiagIDQueryResponseIsBounded(t *testing.T) {
	testlog.Start(t)
	name := strings.Repeat("p", 100)
	entries := make([]DiagIDInfo, 0, 50)
	for i := 0; i < 50; i++ {
		entries = append(entries, DiagIDInfo{ID: uint8(i + 2), ProcessName: name})
	}
	resp, n := EncodeDiagIDQueryResponse(DiagIDQuery{}, entries, 1024)
	if len(resp) > 1024 {
		t.Fatalf("response exceeds bound: %d", len(resp))
	}
	if n != 9 || int(resp[5]) != n {
		t.Fatalf("expected 9 entries within bound, got n=%d count=%d", n, resp[5])
	}
}

func TestHWAccelCommandRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := HWAccelCommand{
		Header:     DiagCmdHeader{Cmd: 75, Subsys: 18, Code: 0x224},
		Version:    1,
		Operation:  1,
		Type:       2,
		TypeVer:    1,
		DiagIDMask: 0x6,
	}
	pkt := in.Encode()
	if len(pkt) != 14 {
		t.Fatalf("expected 14 byte command, got %d", len(pkt))
	}
	out, err := DecodeHWAccelCommand(pkt)
	if err != nil || out != in {
		t.Fatalf("unexpected decode: %+v err=%v", out, err)
	}
	if _, err := DecodeHWAccelCommand(pkt[:10]); !errors.Is(err, ErrShortRecord) {
		t.Fatalf("expected ErrShortRecord, got %v", err)
	}
}
