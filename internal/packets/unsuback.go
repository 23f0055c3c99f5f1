package packets

import "io"

// UnsubackPacket acknowledges an UNSUBSCRIBE.
type UnsubackPacket struct {
	PacketID uint16
}

// Type implements Packet.
func (p *UnsubackPacket) Type() uint8 { return UNSUBACK }

// WriteTo implements Packet.
func (p *UnsubackPacket) WriteTo(w io.Writer) (int64, error) {
	return writeIDOnlyPacket(w, UNSUBACK, 0, p.PacketID)
}

// DecodeUnsuback decodes an UNSUBACK packet.
func DecodeUnsuback(buf []byte) (*UnsubackPacket, error) {
	pid, err := decodeIDOnlyPacket(buf)
	if err != nil {
		return nil, err
	}
	return &UnsubackPacket{PacketID: pid}, nil
}
