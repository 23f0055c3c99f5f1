package packets

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

// hexBytes turns a spaced hex-octet string (as it appears in wire-format
// documentation) into a byte slice.
func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("hexBytes(%q): %v", s, err)
	}
	return b
}

func TestConnectEncodeFullFields(t *testing.T) {
	pkt := &ConnectPacket{
		Protocol:     MQTT,
		CleanSession: true,
		WillFlag:     true,
		WillQoS:      QoS1,
		WillRetain:   false,
		UsernameFlag: true,
		PasswordFlag: true,
		KeepAlive:    10,
		ClientID:     "test",
		WillTopic:    "/a",
		WillMessage:  []byte("offline"),
		Username:     "rust",
		Password:     "mq",
	}

	var buf bytes.Buffer
	if _, err := pkt.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	want := hexBytes(t, "10 27 00 04 4D 51 54 54 04 CE 00 0A 00 04 74 65 73 74 "+
		"00 02 2F 61 00 07 6F 66 66 6C 69 6E 65 00 04 72 75 73 74 00 02 6D 71")
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("CONNECT encoding =\n%x\nwant\n%x", buf.Bytes(), want)
	}

	header, err := DecodeFixedHeader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("DecodeFixedHeader() error = %v", err)
	}
	got, err := DecodeConnect(buf.Bytes()[2:])
	if err != nil {
		t.Fatalf("DecodeConnect() error = %v", err)
	}
	if header.Type != CONNECT {
		t.Errorf("header type = %d, want CONNECT", header.Type)
	}
	if got.ClientID != pkt.ClientID || got.WillTopic != pkt.WillTopic ||
		string(got.WillMessage) != string(pkt.WillMessage) ||
		got.Username != pkt.Username || got.Password != pkt.Password ||
		got.WillQoS != pkt.WillQoS || !got.CleanSession {
		t.Errorf("DecodeConnect() round trip = %+v, want %+v", got, pkt)
	}
}

func TestPublishEncodeQoS1(t *testing.T) {
	pkt := &PublishPacket{
		QoS:      QoS1,
		Topic:    "a/b",
		PacketID: 10,
		Payload:  []byte{0xF1, 0xF2, 0xF3, 0xF4},
	}

	var buf bytes.Buffer
	if _, err := pkt.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	want := hexBytes(t, "32 0B 00 03 61 2F 62 00 0A F1 F2 F3 F4")
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("PUBLISH QoS1 encoding = %x, want %x", buf.Bytes(), want)
	}
}

func TestPublishEncodeQoS0NoPacketID(t *testing.T) {
	pkt := &PublishPacket{
		QoS:     QoS0,
		Topic:   "a/b",
		Payload: []byte{0x01, 0x02},
	}

	var buf bytes.Buffer
	if _, err := pkt.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	want := hexBytes(t, "30 07 00 03 61 2F 62 01 02")
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("PUBLISH QoS0 encoding = %x, want %x", buf.Bytes(), want)
	}
}

func TestSubscribeEncode(t *testing.T) {
	pkt := &SubscribePacket{
		PacketID: 260,
		Topics: []SubscribeTopic{
			{Filter: "a/+", QoS: QoS0},
			{Filter: "#", QoS: QoS1},
			{Filter: "a/b/c", QoS: QoS2},
		},
	}

	var buf bytes.Buffer
	if _, err := pkt.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	want := hexBytes(t, "82 14 01 04 00 03 61 2F 2B 00 00 01 23 01 00 05 61 2F 62 2F 63 02")
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("SUBSCRIBE encoding = %x, want %x", buf.Bytes(), want)
	}
}

func TestSubackDecode(t *testing.T) {
	raw := hexBytes(t, "90 04 00 0F 01 80")

	header, err := DecodeFixedHeader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeFixedHeader() error = %v", err)
	}
	if header.Type != SUBACK || header.RemainingLength != 4 {
		t.Fatalf("header = %+v, want SUBACK/4", header)
	}

	pkt, err := DecodeSuback(raw[2:])
	if err != nil {
		t.Fatalf("DecodeSuback() error = %v", err)
	}
	if pkt.PacketID != 15 {
		t.Errorf("PacketID = %d, want 15", pkt.PacketID)
	}
	want := []SubackResult{{QoS: QoS1}, {Failure: true}}
	if len(pkt.Results) != len(want) || pkt.Results[0] != want[0] || pkt.Results[1] != want[1] {
		t.Errorf("Results = %+v, want %+v", pkt.Results, want)
	}
}

func TestEncodeSubackCodeNeverZeroesQoSOnSuccess(t *testing.T) {
	for _, qos := range []uint8{QoS0, QoS1, QoS2} {
		got := EncodeSubackCode(SubackResult{QoS: qos})
		if got != qos {
			t.Errorf("EncodeSubackCode(QoS=%d) = 0x%02x, want 0x%02x", qos, got, qos)
		}
	}
	if got := EncodeSubackCode(SubackResult{Failure: true}); got != SubackFailure {
		t.Errorf("EncodeSubackCode(Failure) = 0x%02x, want 0x%02x", got, SubackFailure)
	}
}

func TestReadPacketDispatchesByType(t *testing.T) {
	var buf bytes.Buffer
	if _, err := (&PubackPacket{PacketID: 42}).WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	pkt, err := ReadPacket(&buf)
	if err != nil {
		t.Fatalf("ReadPacket() error = %v", err)
	}
	puback, ok := pkt.(*PubackPacket)
	if !ok {
		t.Fatalf("ReadPacket() type = %T, want *PubackPacket", pkt)
	}
	if puback.PacketID != 42 {
		t.Errorf("PacketID = %d, want 42", puback.PacketID)
	}
}

func TestReadPacketAtoms(t *testing.T) {
	for _, pkt := range []Packet{&PingreqPacket{}, &PingrespPacket{}, &DisconnectPacket{}} {
		var buf bytes.Buffer
		if _, err := pkt.WriteTo(&buf); err != nil {
			t.Fatalf("WriteTo(%T) error = %v", pkt, err)
		}
		got, err := ReadPacket(&buf)
		if err != nil {
			t.Fatalf("ReadPacket(%T) error = %v", pkt, err)
		}
		if got.Type() != pkt.Type() {
			t.Errorf("ReadPacket(%T).Type() = %d, want %d", pkt, got.Type(), pkt.Type())
		}
	}
}
