package packets

import (
	"bytes"
	"errors"
	"testing"
)

func TestFixedHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		header FixedHeader
	}{
		{"connect", FixedHeader{Type: CONNECT, Flags: 0, RemainingLength: 10}},
		{"publish qos1", FixedHeader{Type: PUBLISH, Flags: 0x02, RemainingLength: 128 * 128 * 2}},
		{"pingreq", FixedHeader{Type: PINGREQ, Flags: 0, RemainingLength: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := tt.header.WriteTo(&buf); err != nil {
				t.Fatalf("WriteTo() error = %v", err)
			}

			got, err := DecodeFixedHeader(&buf)
			if err != nil {
				t.Fatalf("DecodeFixedHeader() error = %v", err)
			}
			if got != tt.header {
				t.Errorf("DecodeFixedHeader() = %+v, want %+v", got, tt.header)
			}
		})
	}
}

func TestDecodeFixedHeaderRejectsReservedType(t *testing.T) {
	_, err := DecodeFixedHeader(bytes.NewReader([]byte{0x00, 0x00}))
	if !errors.Is(err, ErrUnsupportedPacketType) {
		t.Errorf("type 0 error = %v, want ErrUnsupportedPacketType", err)
	}

	_, err = DecodeFixedHeader(bytes.NewReader([]byte{0xF0, 0x00}))
	if !errors.Is(err, ErrUnsupportedPacketType) {
		t.Errorf("type 15 error = %v, want ErrUnsupportedPacketType", err)
	}
}
