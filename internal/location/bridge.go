package location

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Message types exchanged with the host shell.
const (
	MsgRequestLocation = "requestLocation"
	MsgLocationUpdate  = "locationUpdate"
	MsgLocationError   = "locationError"
)

// maxMessageSize bounds a single inbound line.
const maxMessageSize = 64 * 1024

// ErrBridgeClosed is returned when a request is made on a closed bridge.
var ErrBridgeClosed = errors.New("host bridge closed")

var errLineTooLong = errors.New("host message too long")

// outboundMessage is sent to the host to ask for a fix.
type outboundMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// inboundMessage is any message the host sends back.
type inboundMessage struct {
	Type      string   `json:"type"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
	Error     string   `json:"error"`
}

// HostBridge talks to a native host shell over newline-delimited JSON.
// One reader goroutine runs for the bridge's lifetime. The protocol carries
// no request id, so a reply goes to every subscriber with a request
// outstanding. An unsolicited message goes to the most recent requester, or
// to the only subscriber when there is just one; otherwise it is dropped.
type HostBridge struct {
	w   io.Writer
	r   io.Reader
	now func() time.Time

	writeMu sync.Mutex

	mu      sync.Mutex
	subs    map[int]Listener
	pending map[int]bool
	last    int // most recent requester, -1 when none
	nextID  int
	closed  bool

	done chan struct{}
}

// NewHostBridge starts listening on r and sends requests to w.
// If r is an io.Closer, Close closes it to stop the reader.
func NewHostBridge(r io.Reader, w io.Writer) *HostBridge {
	b := &HostBridge{
		w:       w,
		r:       r,
		now:     time.Now,
		subs:    make(map[int]Listener),
		pending: make(map[int]bool),
		last:    -1,
		done:    make(chan struct{}),
	}
	go b.listen()
	return b
}

// Subscribe registers a listener and returns a Provider bound to it.
// Closing the returned provider deregisters the listener.
func (b *HostBridge) Subscribe(l Listener) Provider {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	if !b.closed {
		b.subs[id] = l
	}
	return &bridgeProvider{bridge: b, id: id}
}

// Subscribers returns the number of registered listeners.
func (b *HostBridge) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Done is closed when the reader goroutine exits.
func (b *HostBridge) Done() <-chan struct{} {
	return b.done
}

// Close drops every subscription and stops reading if the reader can be closed.
func (b *HostBridge) Close() error {
	b.mu.Lock()
	b.closed = true
	b.subs = make(map[int]Listener)
	b.pending = make(map[int]bool)
	b.last = -1
	b.mu.Unlock()

	if c, ok := b.r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("closing host bridge: %w", err)
		}
	}
	return nil
}

// request sends a requestLocation message to the host on behalf of one
// subscriber.
func (b *HostBridge) request(id int) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBridgeClosed
	}
	if _, ok := b.subs[id]; ok {
		b.pending[id] = true
		b.last = id
	}
	b.mu.Unlock()

	data, err := json.Marshal(outboundMessage{
		Type:      MsgRequestLocation,
		Timestamp: b.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	data = append(data, '\n')

	b.writeMu.Lock()
	_, err = b.w.Write(data)
	b.writeMu.Unlock()
	if err != nil {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return fmt.Errorf("writing to host: %w", err)
	}
	return nil
}

func (b *HostBridge) unsubscribe(id int) {
	b.mu.Lock()
	delete(b.subs, id)
	delete(b.pending, id)
	if b.last == id {
		b.last = -1
	}
	b.mu.Unlock()
}

// targetsLocked picks the listeners for one inbound message and clears the
// outstanding requests it answers.
func (b *HostBridge) targetsLocked() []Listener {
	var targets []Listener
	switch {
	case len(b.pending) > 0:
		for id := range b.pending {
			if l, ok := b.subs[id]; ok {
				targets = append(targets, l)
			}
		}
		b.pending = make(map[int]bool)
	case b.last >= 0:
		if l, ok := b.subs[b.last]; ok {
			targets = append(targets, l)
		}
	case len(b.subs) == 1:
		for _, l := range b.subs {
			targets = append(targets, l)
		}
	}
	return targets
}

// listen reads inbound messages until the reader is exhausted. Oversized
// lines are dropped without stopping the reader.
func (b *HostBridge) listen() {
	defer close(b.done)

	br := bufio.NewReaderSize(b.r, 4096)
	for {
		line, err := readLine(br, maxMessageSize)
		if errors.Is(err, errLineTooLong) {
			slog.Warn("dropping oversized host message", "limit", maxMessageSize)
			continue
		}
		if len(bytes.TrimSpace(line)) > 0 {
			b.dispatch(line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				slog.Warn("host bridge stopped", "error", err)
			}
			return
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed to its end and reported as errLineTooLong.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit+1 {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			if err != nil {
				return nil, err
			}
			return nil, errLineTooLong
		}
		return bytes.TrimRight(line, "\r\n"), err
	}
}

// dispatch decodes one message and hands it to its listeners.
// Malformed and unknown messages are logged and dropped.
func (b *HostBridge) dispatch(line []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		slog.Warn("dropping malformed host message", "error", err)
		return
	}

	var deliver func(Listener)
	switch msg.Type {
	case MsgLocationUpdate:
		if msg.Latitude == nil || msg.Longitude == nil {
			slog.Warn("dropping location update without coordinates")
			return
		}
		fix := Fix{Latitude: *msg.Latitude, Longitude: *msg.Longitude, Address: msg.Address}
		deliver = func(l Listener) { l.LocationUpdate(fix) }
	case MsgLocationError:
		locErr := hostError(msg.Error)
		deliver = func(l Listener) { l.LocationError(locErr) }
	default:
		slog.Debug("ignoring host message", "type", msg.Type)
		return
	}

	b.mu.Lock()
	listeners := b.targetsLocked()
	b.mu.Unlock()

	if len(listeners) == 0 {
		slog.Debug("dropping unsolicited host message", "type", msg.Type)
		return
	}
	for _, l := range listeners {
		deliver(l)
	}
}

// bridgeProvider is one listener's view of a shared HostBridge.
type bridgeProvider struct {
	bridge *HostBridge
	id     int
	once   sync.Once
}

func (p *bridgeProvider) Mode() Mode { return ModeHostBridge }

// RequestLocation posts the request and returns; the reply arrives through
// the bridge's listener.
func (p *bridgeProvider) RequestLocation(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.bridge.request(p.id)
}

func (p *bridgeProvider) Close() error {
	p.once.Do(func() { p.bridge.unsubscribe(p.id) })
	return nil
}
