package mqttc

import "github.com/gonzalop/mqttc/internal/packets"

// Disconnect writes DISCONNECT, flushes, and releases the transport. It
// does not wait for any acknowledgement — MQTT defines none for DISCONNECT.
// After this call the Client is Disconnected and will not reconnect.
func (c *Client) Disconnect() error {
	c.opts.reconnect = ForeverDisconnect()
	if c.state == Disconnected {
		return nil
	}

	var werr error
	if err := c.writePacket(&packets.DisconnectPacket{}); err != nil {
		werr = err
	} else {
		c.flush()
	}

	c.unbind()
	return werr
}
