package mqttc

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/gonzalop/mqttc/internal/packets"
	"github.com/gonzalop/mqttc/topic"
	"github.com/gonzalop/mqttc/transport"
)

// State is the session's connection state.
type State uint8

// Session states, per spec.md §4.4's state machine.
const (
	Disconnected State = iota
	Handshake
	Connected
)

func (s State) String() string {
	switch s {
	case Handshake:
		return "handshake"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// pendingPublish is one entry in outgoingAck/outgoingRec: the message the
// client is awaiting an acknowledgement for.
type pendingPublish struct {
	pid uint16
	qos QoS
}

// pendingSubscribe is one entry in awaitSuback: the SUBSCRIBE the client is
// awaiting a SUBACK for, retained so the topic filters can be recorded once
// granted.
type pendingSubscribe struct {
	pid    uint16
	topics []subscribeTopic
}

type subscribeTopic struct {
	filter string
	path   topic.Path
	qos    QoS
}

// pendingUnsubscribe is one entry in awaitUnsuback.
type pendingUnsubscribe struct {
	pid     uint16
	filters []string
}

// subscription is one entry in the subscriptions map: bookkeeping for local
// dispatch and for resubscription after a reconnect.
type subscription struct {
	pid  uint16
	path topic.Path
	qos  QoS
}

// Client drives one MQTT session: the CONNECT handshake, keep-alive, QoS 1/2
// delivery flows, subscription bookkeeping, and reconnection. A Client is
// driven by a single goroutine; it is not safe for concurrent use.
type Client struct {
	opts      *clientOptions
	transport transport.Transport

	state          State
	sessionPresent bool

	lastFlush  time.Time
	lastPid    uint16
	awaitPing  bool
	reconnects int

	outgoingAck   []pendingPublish
	outgoingRec   []pendingPublish
	outgoingComp  []uint16
	incomingRec   []uint16
	incomingRel   []uint16
	autoCompleted []uint16

	awaitSuback   []pendingSubscribe
	awaitUnsuback []pendingUnsubscribe

	subscriptions map[string]subscription
}

// Dial opens addr with dialer.DialContext (or net.Dialer{} if nil and no
// WithTransport was given), then performs the CONNECT/CONNACK handshake.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.clientID == "" {
		o.clientID = fmt.Sprintf("mqttc_%d", rand.Uint32())
	}

	c := &Client{
		opts:          o,
		subscriptions: make(map[string]subscription),
	}

	if err := c.open(ctx, addr); err != nil {
		return nil, err
	}

	if err := c.handshake(); err != nil {
		c.unbind()
		return nil, err
	}

	return c, nil
}

// open establishes the underlying transport, either the one injected via
// WithTransport or a freshly dialed TCP connection to addr. It also installs
// a default redialer (plain TCP to addr) unless the caller supplied one via
// WithRedialer or WithTransport was used without one.
func (c *Client) open(ctx context.Context, addr string) error {
	if c.opts.redial == nil && c.opts.transport == nil {
		dialer := c.opts.dialer
		c.opts.redial = func(ctx context.Context) (transport.Transport, error) {
			return transport.DialTCP(ctx, dialer, addr)
		}
	}

	if c.opts.transport != nil {
		c.transport = c.opts.transport
		return nil
	}
	t, err := transport.DialTCP(ctx, c.opts.dialer, addr)
	if err != nil {
		return err
	}
	c.transport = t
	return nil
}

// State reports the current session state.
func (c *Client) State() State { return c.state }

// SessionPresent reports the session-present flag from the most recent
// CONNACK.
func (c *Client) SessionPresent() bool { return c.sessionPresent }

// nextPid allocates the next packet identifier, skipping 0 and, on
// wraparound, skipping any pid still live in an in-flight queue — see
// spec.md §9's note on the source's unchecked wraparound.
func (c *Client) nextPid() uint16 {
	for {
		c.lastPid++
		if c.lastPid == 0 {
			c.lastPid = 1
		}
		if !c.pidInFlight(c.lastPid) {
			return c.lastPid
		}
	}
}

func (c *Client) pidInFlight(pid uint16) bool {
	for _, p := range c.outgoingAck {
		if p.pid == pid {
			return true
		}
	}
	for _, p := range c.outgoingRec {
		if p.pid == pid {
			return true
		}
	}
	for _, p := range c.outgoingComp {
		if p == pid {
			return true
		}
	}
	for _, p := range c.awaitSuback {
		if p.pid == pid {
			return true
		}
	}
	for _, p := range c.awaitUnsuback {
		if p.pid == pid {
			return true
		}
	}
	return false
}

// writePacket encodes pkt directly onto the transport, bounded by a write
// deadline of one keep-alive interval. It returns ErrDisconnected when the
// session is Disconnected. Callers are responsible for calling flush (which
// updates lastFlush for keep-alive accounting).
func (c *Client) writePacket(pkt packets.Packet) error {
	if c.state == Disconnected {
		return ErrDisconnected
	}
	if err := c.transport.SetWriteDeadline(time.Now().Add(c.opts.keepAlive)); err != nil {
		return transport.Classify(err)
	}
	_, err := pkt.WriteTo(c.transport)
	if err != nil {
		return transport.Classify(err)
	}
	return nil
}

// flush marks the connection as having just made forward progress, which
// is what the keep-alive deadline in Await is measured against. This codec
// writes directly to the transport with no buffering, so there is nothing
// to flush beyond that bookkeeping.
func (c *Client) flush() {
	c.lastFlush = time.Now()
}
