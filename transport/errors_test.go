package transport

import (
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"eof", io.EOF, UnexpectedEOF},
		{"unexpected eof", io.ErrUnexpectedEOF, UnexpectedEOF},
		{"connection refused", syscall.ECONNREFUSED, ConnectionRefused},
		{"connection reset", syscall.ECONNRESET, ConnectionReset},
		{"connection aborted", syscall.ECONNABORTED, ConnectionAborted},
		{"other", fmt.Errorf("boom"), Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}
