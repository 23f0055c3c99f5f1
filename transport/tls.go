package transport

import (
	"context"
	"crypto/tls"
	"net"
)

// DialTLS opens a TLS connection to addr, completing the handshake as part
// of the dial.
func DialTLS(ctx context.Context, nd *net.Dialer, addr string, config *tls.Config) (*TCPTransport, error) {
	if nd == nil {
		nd = &net.Dialer{}
	}
	if config == nil {
		config = &tls.Config{}
	}

	dialer := &tls.Dialer{NetDialer: nd, Config: config}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPTransport{conn: conn}, nil
}
