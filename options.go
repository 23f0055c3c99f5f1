package mqttc

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/gonzalop/mqttc/internal/packets"
	"github.com/gonzalop/mqttc/store"
	"github.com/gonzalop/mqttc/transport"
	"golang.org/x/time/rate"
)

// ReconnectPolicy controls whether Await attempts to re-establish a dropped
// connection. The zero value is ForeverDisconnect: never reconnect.
type ReconnectPolicy struct {
	after   time.Duration
	enabled bool
}

// ForeverDisconnect never reconnects; an unbind is terminal.
func ForeverDisconnect() ReconnectPolicy { return ReconnectPolicy{} }

// ReconnectAfter reconnects after sleeping d following an unbind.
func ReconnectAfter(d time.Duration) ReconnectPolicy {
	return ReconnectPolicy{after: d, enabled: true}
}

// LastWill is the message the broker publishes on the client's behalf if it
// disconnects uncleanly.
type LastWill struct {
	Topic   string
	Message []byte
	QoS     QoS
	Retain  bool
}

// clientOptions holds configuration for Dial, assembled from the functional
// Options passed in.
type clientOptions struct {
	protocol     packets.Protocol
	keepAlive    time.Duration
	cleanSession bool
	clientID     string
	lastWill     *LastWill
	username     string
	password     string
	reconnect    ReconnectPolicy

	incomingStore store.Store
	outgoingStore store.Store

	logger *slog.Logger

	dialer    transport.ContextDialer
	transport transport.Transport
	redial    func(context.Context) (transport.Transport, error)

	publishLimiter *rate.Limiter
}

// Option configures a Client constructed by Dial.
type Option func(*clientOptions)

// WithProtocol selects MQTT(4) (default) or MQIsdp(3) for the CONNECT
// packet.
func WithProtocol(p packets.Protocol) Option {
	return func(o *clientOptions) { o.protocol = p }
}

// WithKeepAlive sets the keep-alive interval, also used as the initial
// read/write deadline (default 60s).
func WithKeepAlive(d time.Duration) Option {
	return func(o *clientOptions) { o.keepAlive = d }
}

// WithCleanSession sets the CONNECT clean-session flag (default true).
func WithCleanSession(clean bool) Option {
	return func(o *clientOptions) { o.cleanSession = clean }
}

// WithClientID sets the CONNECT client identifier. If left unset, Dial
// generates "mqttc_<rand32>".
func WithClientID(id string) Option {
	return func(o *clientOptions) { o.clientID = id }
}

// WithLastWill sets the CONNECT will fields.
func WithLastWill(will LastWill) Option {
	return func(o *clientOptions) { o.lastWill = &will }
}

// WithCredentials sets the CONNECT username/password fields.
func WithCredentials(username, password string) Option {
	return func(o *clientOptions) {
		o.username = username
		o.password = password
	}
}

// WithReconnect sets the reconnection policy (default ForeverDisconnect).
func WithReconnect(policy ReconnectPolicy) Option {
	return func(o *clientOptions) { o.reconnect = policy }
}

// WithIncomingStore installs the persistent store used for QoS 2 receive
// deduplication. Required only when QoS 2 subscriptions are in use.
func WithIncomingStore(s store.Store) Option {
	return func(o *clientOptions) { o.incomingStore = s }
}

// WithOutgoingStore installs the persistent store used for QoS 1/2 publish
// durability across reconnects. Required only when QoS 2 publishes are in
// use; recommended for QoS 1 when clean_session=false.
func WithOutgoingStore(s store.Store) Option {
	return func(o *clientOptions) { o.outgoingStore = s }
}

// WithLogger sets the logger used for packet-flow and protocol-violation
// diagnostics. Defaults to a handler that discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithDialer sets a custom dialer used by Dial to establish the initial
// TCP connection and any reconnect. Ignored if WithTransport is used.
func WithDialer(d transport.ContextDialer) Option {
	return func(o *clientOptions) { o.dialer = d }
}

// WithTransport injects an already-open Transport, bypassing Dial's own TCP
// dialing entirely. Used for tests (transport.MockTransport) and for
// TLS/WebSocket transports dialed by the caller.
func WithTransport(t transport.Transport) Option {
	return func(o *clientOptions) { o.transport = t }
}

// WithRedialer overrides how a dropped connection is re-established:
// instead of redialing the original TCP address, reconnect calls fn to
// obtain a fresh Transport. Used by tests that reconnect over
// transport.MockTransport pairs, and by callers who dialed a TLS or
// WebSocket transport by hand for the initial connection.
func WithRedialer(fn func(context.Context) (transport.Transport, error)) Option {
	return func(o *clientOptions) { o.redial = fn }
}

// WithPublishRateLimit caps outgoing Publish calls to a token-bucket limiter
// of rate r and burst size burst. Publish blocks (respecting the passed
// context) until a token is available. Unset means unlimited.
func WithPublishRateLimit(r rate.Limit, burst int) Option {
	return func(o *clientOptions) { o.publishLimiter = rate.NewLimiter(r, burst) }
}

func defaultOptions() *clientOptions {
	return &clientOptions{
		protocol:     packets.MQTT,
		keepAlive:    60 * time.Second,
		cleanSession: true,
		reconnect:    ForeverDisconnect(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
