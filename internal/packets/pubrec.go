package packets

import "io"

// PubrecPacket is the first half of the QoS 2 handshake, sent by the
// receiver once PUBLISH has arrived.
type PubrecPacket struct {
	PacketID uint16
}

// Type implements Packet.
func (p *PubrecPacket) Type() uint8 { return PUBREC }

// WriteTo implements Packet.
func (p *PubrecPacket) WriteTo(w io.Writer) (int64, error) {
	return writeIDOnlyPacket(w, PUBREC, 0, p.PacketID)
}

// DecodePubrec decodes a PUBREC packet.
func DecodePubrec(buf []byte) (*PubrecPacket, error) {
	pid, err := decodeIDOnlyPacket(buf)
	if err != nil {
		return nil, err
	}
	return &PubrecPacket{PacketID: pid}, nil
}
