package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockTransportRoundTrip(t *testing.T) {
	client, broker := NewMockPair()
	defer client.Close()
	defer broker.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 5)
		n, err := broker.Read(buf)
		assert.NoError(t, err)
		assert.Equal(t, "hello", string(buf[:n]))
	}()

	n, err := client.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	<-done
}

func TestMockTransportReadDeadline(t *testing.T) {
	client, broker := NewMockPair()
	defer client.Close()
	defer broker.Close()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(10*time.Millisecond)))

	buf := make([]byte, 1)
	_, err := client.Read(buf)
	assert.Error(t, err)

	classified := Classify(err)
	assert.Equal(t, TimedOut, classified.Kind)
}

func TestMockTransportCloseUnblocksRead(t *testing.T) {
	client, broker := NewMockPair()
	defer broker.Close()

	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		_, err := client.Read(buf)
		errCh <- err
	}()

	require.NoError(t, client.Close())
	err := <-errCh
	assert.Error(t, err)
}
