package mqttc

import (
	"context"
	"time"

	"github.com/gonzalop/mqttc/internal/packets"
)

// unbind terminates the transport and resets the purely connection-scoped
// state. Outgoing queues, the incoming/outgoing stores, and the
// subscriptions map are deliberately left untouched — they are replayed on
// reconnect (spec.md §4.4).
func (c *Client) unbind() {
	if c.transport != nil {
		_ = c.transport.Close()
	}
	c.awaitSuback = nil
	c.awaitUnsuback = nil
	c.awaitPing = false
	c.state = Disconnected
	c.opts.logger.Info("disconnected", "client_id", c.opts.clientID)
}

// tryReconnect honors the configured ReconnectPolicy: ForeverDisconnect
// never retries; ReconnectAfter sleeps, redials, re-handshakes, and
// resubscribes on success.
func (c *Client) tryReconnect() bool {
	if !c.opts.reconnect.enabled {
		return false
	}

	c.opts.logger.Info("reconnecting", "after", c.opts.reconnect.after)
	time.Sleep(c.opts.reconnect.after)

	if c.opts.redial == nil {
		c.opts.logger.Error("reconnect requested but no redialer configured")
		return false
	}
	t, err := c.opts.redial(context.Background())
	if err != nil {
		c.opts.logger.Error("reconnect dial failed", "error", err)
		return false
	}
	c.transport = t
	c.reconnects++

	if err := c.handshake(); err != nil {
		c.opts.logger.Error("reconnect handshake failed", "error", err)
		return false
	}

	if err := c.resubscribe(); err != nil {
		c.opts.logger.Error("resubscribe after reconnect failed", "error", err)
		return false
	}

	if err := c.replayOutgoing(); err != nil {
		c.opts.logger.Error("replay of in-flight publishes failed", "error", err)
		return false
	}

	return true
}

// handshake sends CONNECT and blocks for exactly the CONNACK. It calls
// accept directly rather than the full Await loop: on a reconnect, queues
// from before the drop (an unacked publish, a pending subscribe) may
// already be non-empty, and Await would keep reading past the CONNACK
// trying to drain them before anything has had a chance to resubscribe or
// replay.
func (c *Client) handshake() error {
	c.state = Handshake
	if err := c.sendConnect(); err != nil {
		return err
	}
	_, err := c.accept()
	return err
}

func (c *Client) sendConnect() error {
	pkt := &packets.ConnectPacket{
		Protocol:     c.opts.protocol,
		CleanSession: c.opts.cleanSession,
		KeepAlive:    uint16(c.opts.keepAlive / time.Second),
		ClientID:     c.opts.clientID,
		UsernameFlag: c.opts.username != "",
		Username:     c.opts.username,
		PasswordFlag: c.opts.password != "",
		Password:     c.opts.password,
	}
	if c.opts.lastWill != nil {
		pkt.WillFlag = true
		pkt.WillTopic = c.opts.lastWill.Topic
		pkt.WillMessage = c.opts.lastWill.Message
		pkt.WillQoS = uint8(c.opts.lastWill.QoS)
		pkt.WillRetain = c.opts.lastWill.Retain
	}

	c.opts.logger.Debug("connect", "client_id", c.opts.clientID, "clean_session", c.opts.cleanSession)
	if err := c.writePacket(pkt); err != nil {
		return err
	}
	c.flush()
	return nil
}

// resubscribe sends a fresh SUBSCRIBE carrying exactly the filters present
// in subscriptions at the moment of the prior unbind, with their recorded
// granted QoS (spec.md §4.4, testable property 7).
func (c *Client) resubscribe() error {
	if len(c.subscriptions) == 0 {
		return nil
	}

	topics := make([]subscribeTopic, 0, len(c.subscriptions))
	wire := make([]packets.SubscribeTopic, 0, len(c.subscriptions))
	for filter, sub := range c.subscriptions {
		topics = append(topics, subscribeTopic{filter: filter, path: sub.path, qos: sub.qos})
		wire = append(wire, packets.SubscribeTopic{Filter: filter, QoS: uint8(sub.qos)})
	}

	pid := c.nextPid()
	c.opts.logger.Debug("resubscribe", "count", len(wire))
	if err := c.writePacket(&packets.SubscribePacket{PacketID: pid, Topics: wire}); err != nil {
		return err
	}
	c.flush()
	c.awaitSuback = append(c.awaitSuback, pendingSubscribe{pid: pid, topics: topics})
	return nil
}

// replayOutgoing retransmits (as DUP) every QoS 1/2 publish still awaiting
// its PUBACK or PUBREC after a reconnect, provided its outgoing-store entry
// exists. With no outgoing store nothing is replayed, and no PUBREL is
// resent for pids awaiting PUBCOMP. This is the extension spec.md §4.4
// explicitly allows ("an implementation may elect to replay them"): the
// outgoing store already holds exactly what's needed, and leaving these
// unsent until the next Publish call would contradict at-least-once
// delivery for a caller that never publishes again after a drop.
func (c *Client) replayOutgoing() error {
	if c.opts.outgoingStore == nil {
		return nil
	}

	for _, p := range c.outgoingAck {
		if err := c.replayOne(p.pid, p.qos); err != nil {
			return err
		}
	}
	for _, p := range c.outgoingRec {
		if err := c.replayOne(p.pid, p.qos); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) replayOne(pid uint16, qos QoS) error {
	stored, err := c.opts.outgoingStore.Get(pid)
	if err != nil {
		// Nothing durable to replay; the ack is still awaited from the
		// original transmission if the peer happens to have it.
		return nil
	}
	pkt := &packets.PublishPacket{
		Dup:      true,
		QoS:      uint8(qos),
		Retain:   stored.Retain,
		Topic:    stored.Topic,
		PacketID: pid,
		Payload:  stored.Payload,
	}
	if err := c.writePacket(pkt); err != nil {
		return err
	}
	c.flush()
	return nil
}
