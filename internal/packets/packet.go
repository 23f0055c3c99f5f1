package packets

import "io"

// Packet is implemented by every MQTT control packet.
type Packet interface {
	// Type returns the MQTT control packet type (the fixed header's upper
	// nibble).
	Type() uint8

	// WriteTo encodes the packet onto w, returning the number of bytes
	// written.
	WriteTo(w io.Writer) (int64, error)
}
