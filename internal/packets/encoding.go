package packets

import (
	"fmt"
	"unicode/utf8"
)

// appendString appends a length-prefixed (u16 big-endian) UTF-8 string to dst.
func appendString(dst []byte, s string) []byte {
	dst = appendUint16(dst, uint16(len(s)))
	return append(dst, s...)
}

// appendBinary appends length-prefixed binary data to dst.
func appendBinary(dst []byte, data []byte) []byte {
	dst = appendUint16(dst, uint16(len(data)))
	return append(dst, data...)
}

// decodeString decodes a length-prefixed UTF-8 string, returning the string,
// the number of bytes consumed, and an error.
func decodeString(buf []byte) (string, int, error) {
	if len(buf) < 2 {
		return "", 0, fmt.Errorf("%w: string length", ErrIncorrectPacketFormat)
	}
	length := int(buf[0])<<8 | int(buf[1])
	if len(buf) < 2+length {
		return "", 0, fmt.Errorf("%w: string data", ErrIncorrectPacketFormat)
	}
	s := string(buf[2 : 2+length])
	if !utf8.ValidString(s) {
		return "", 0, ErrTopicNameMustNotContainUTF8
	}
	return s, 2 + length, nil
}

// decodeBinary reads length-prefixed binary data from buf.
func decodeBinary(buf []byte) ([]byte, int, error) {
	if len(buf) < 2 {
		return nil, 0, fmt.Errorf("%w: binary length", ErrIncorrectPacketFormat)
	}
	length := int(buf[0])<<8 | int(buf[1])
	if len(buf) < 2+length {
		return nil, 0, fmt.Errorf("%w: binary data", ErrIncorrectPacketFormat)
	}
	out := make([]byte, length)
	copy(out, buf[2:2+length])
	return out, 2 + length, nil
}
