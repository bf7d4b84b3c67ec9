package location

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// testBridge wires a bridge to in-memory pipes. The returned writer feeds
// inbound host messages; the reader yields outbound requests.
func testBridge(t *testing.T) (*HostBridge, *io.PipeWriter, *bufio.Reader) {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	b := NewHostBridge(inR, outW)
	b.now = func() time.Time { return time.UnixMilli(1700000000000) }
	t.Cleanup(func() {
		if err := inW.Close(); err != nil {
			t.Errorf("closing pipe: %v", err)
		}
		if err := outR.Close(); err != nil {
			t.Errorf("closing pipe: %v", err)
		}
	})
	return b, inW, bufio.NewReader(outR)
}

func send(t *testing.T, w io.Writer, s string) {
	t.Helper()
	if _, err := io.WriteString(w, s+"\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestBridgeRequestLocation(t *testing.T) {
	b, _, out := testBridge(t)
	p := b.Subscribe(newRecorder())

	if p.Mode() != ModeHostBridge {
		t.Errorf("mode = %q", p.Mode())
	}

	errc := make(chan error, 1)
	go func() { errc <- p.RequestLocation(context.Background()) }()

	line, err := out.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("request: %v", err)
	}

	var msg map[string]interface{}
	if err := json.Unmarshal(line, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg["type"] != "requestLocation" {
		t.Errorf("type = %v", msg["type"])
	}
	if msg["timestamp"] != float64(1700000000000) {
		t.Errorf("timestamp = %v", msg["timestamp"])
	}
}

func TestBridgeDeliversUpdate(t *testing.T) {
	b, in, _ := testBridge(t)
	rec := newRecorder()
	b.Subscribe(rec)

	send(t, in, `{"type":"locationUpdate","latitude":1.5,"longitude":-2.25,"address":"Main St"}`)

	fix, err := rec.next(t)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fix.Latitude != 1.5 || fix.Longitude != -2.25 || fix.Address != "Main St" {
		t.Errorf("fix = %+v", fix)
	}
}

func TestBridgeDeliversError(t *testing.T) {
	b, in, _ := testBridge(t)
	rec := newRecorder()
	b.Subscribe(rec)

	send(t, in, `{"type":"locationError","error":"GPS off"}`)

	_, err := rec.next(t)
	var locErr *Error
	if !errors.As(err, &locErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if locErr.Reason != ReasonHost || locErr.Message != "Location error: GPS off" {
		t.Errorf("error = %+v", locErr)
	}
}

func TestBridgeDropsMalformedMessages(t *testing.T) {
	b, in, _ := testBridge(t)
	rec := newRecorder()
	b.Subscribe(rec)

	send(t, in, `not json`)
	send(t, in, `{"type":"somethingElse"}`)
	send(t, in, `{"type":"locationUpdate","latitude":1}`)
	rec.quiet(t)

	// The listener survives bad input.
	send(t, in, `{"type":"locationUpdate","latitude":3,"longitude":4}`)
	fix, err := rec.next(t)
	if err != nil || fix.Latitude != 3 {
		t.Errorf("fix = %+v, err = %v", fix, err)
	}
}

func TestBridgeUnsubscribe(t *testing.T) {
	b, in, _ := testBridge(t)
	kept, dropped := newRecorder(), newRecorder()
	b.Subscribe(kept)
	p := b.Subscribe(dropped)

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if n := b.Subscribers(); n != 1 {
		t.Errorf("subscribers = %d, want 1", n)
	}

	send(t, in, `{"type":"locationUpdate","latitude":1,"longitude":2}`)
	if _, err := kept.next(t); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dropped.quiet(t)
}

func TestBridgeClose(t *testing.T) {
	b, _, _ := testBridge(t)
	p := b.Subscribe(newRecorder())

	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not stop")
	}
	if err := p.RequestLocation(context.Background()); !errors.Is(err, ErrBridgeClosed) {
		t.Errorf("err = %v, want ErrBridgeClosed", err)
	}
	if n := b.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}
}

// request asks for a fix through p and consumes the outbound line.
func request(t *testing.T, p Provider, out *bufio.Reader) {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- p.RequestLocation(context.Background()) }()
	if _, err := out.ReadBytes('\n'); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("request: %v", err)
	}
}

func TestBridgeSurvivesOversizedMessage(t *testing.T) {
	b, in, _ := testBridge(t)
	rec := newRecorder()
	b.Subscribe(rec)

	huge := `{"type":"locationUpdate","latitude":1,"longitude":2,"address":"` +
		strings.Repeat("x", maxMessageSize+10) + `"}`
	send(t, in, huge)
	rec.quiet(t)

	send(t, in, `{"type":"locationUpdate","latitude":3,"longitude":4}`)
	fix, err := rec.next(t)
	if err != nil || fix.Latitude != 3 || fix.Longitude != 4 {
		t.Errorf("fix = %+v, err = %v", fix, err)
	}
	select {
	case <-b.Done():
		t.Fatal("reader stopped after an oversized message")
	default:
	}
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("short\r\n"+strings.Repeat("y", 40)+"\nnext\nlast"), 16)

	tests := []struct {
		want    string
		wantErr error
	}{
		{"short", nil},
		{"", errLineTooLong},
		{"next", nil},
		{"last", io.EOF},
	}
	for _, tt := range tests {
		line, err := readLine(r, 20)
		if string(line) != tt.want || !errors.Is(err, tt.wantErr) {
			t.Errorf("readLine = %q, %v; want %q, %v", line, err, tt.want, tt.wantErr)
		}
	}
}

func TestBridgeRoutesReplyToRequester(t *testing.T) {
	b, in, out := testBridge(t)
	alice, bob := newRecorder(), newRecorder()
	pa := b.Subscribe(alice)
	pb := b.Subscribe(bob)

	request(t, pa, out)
	send(t, in, `{"type":"locationUpdate","latitude":1,"longitude":2,"address":"Alice St"}`)
	if fix, err := alice.next(t); err != nil || fix.Address != "Alice St" {
		t.Errorf("alice fix = %+v, err = %v", fix, err)
	}
	bob.quiet(t)

	// Unsolicited follow-ups stay with the latest requester.
	send(t, in, `{"type":"locationUpdate","latitude":5,"longitude":6}`)
	if _, err := alice.next(t); err != nil {
		t.Errorf("alice err = %v", err)
	}
	bob.quiet(t)

	request(t, pb, out)
	send(t, in, `{"type":"locationError","error":"GPS off"}`)
	if _, err := bob.next(t); err == nil {
		t.Error("expected bob to get the error")
	}
	alice.quiet(t)
}

func TestBridgeReplyReachesEveryPendingRequester(t *testing.T) {
	b, in, out := testBridge(t)
	alice, bob := newRecorder(), newRecorder()
	request(t, b.Subscribe(alice), out)
	request(t, b.Subscribe(bob), out)

	send(t, in, `{"type":"locationUpdate","latitude":1,"longitude":2}`)
	if _, err := alice.next(t); err != nil {
		t.Errorf("alice err = %v", err)
	}
	if _, err := bob.next(t); err != nil {
		t.Errorf("bob err = %v", err)
	}
}

func TestBridgeDropsUnsolicitedWithSeveralSubscribers(t *testing.T) {
	b, in, _ := testBridge(t)
	alice, bob := newRecorder(), newRecorder()
	b.Subscribe(alice)
	b.Subscribe(bob)

	send(t, in, `{"type":"locationUpdate","latitude":1,"longitude":2}`)
	alice.quiet(t)
	bob.quiet(t)
}

func TestBridgeForgetsClosedRequester(t *testing.T) {
	b, in, out := testBridge(t)
	alice, bob := newRecorder(), newRecorder()
	pa := b.Subscribe(alice)
	b.Subscribe(bob)

	request(t, pa, out)
	if err := pa.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// bob is now the only subscriber and gets unsolicited updates.
	send(t, in, `{"type":"locationUpdate","latitude":1,"longitude":2}`)
	if _, err := bob.next(t); err != nil {
		t.Errorf("bob err = %v", err)
	}
	alice.quiet(t)
}
