package packets

import "io"

// PubcompPacket closes the QoS 2 handshake.
type PubcompPacket struct {
	PacketID uint16
}

// Type implements Packet.
func (p *PubcompPacket) Type() uint8 { return PUBCOMP }

// WriteTo implements Packet.
func (p *PubcompPacket) WriteTo(w io.Writer) (int64, error) {
	return writeIDOnlyPacket(w, PUBCOMP, 0, p.PacketID)
}

// DecodePubcomp decodes a PUBCOMP packet.
func DecodePubcomp(buf []byte) (*PubcompPacket, error) {
	pid, err := decodeIDOnlyPacket(buf)
	if err != nil {
		return nil, err
	}
	return &PubcompPacket{PacketID: pid}, nil
}
