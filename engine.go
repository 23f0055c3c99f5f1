package mqttc

import (
	"errors"
	"fmt"
	"time"

	"github.com/gonzalop/mqttc/internal/packets"
	"github.com/gonzalop/mqttc/topic"
	"github.com/gonzalop/mqttc/transport"
)

// Await blocks until one of: a deliverable message is ready, an
// unrecoverable error occurs, or the session is quiescent (Connected, no
// outstanding ping, every queue empty). Every read after the CONNACK of the
// handshake happens here, bounded by the keep-alive deadline.
func (c *Client) Await() (*Message, error) {
	for {
		msg, err := c.accept()
		switch {
		case err == nil:
			if msg != nil {
				return msg, nil
			}
		case errors.Is(err, ErrTimeout):
			if c.state == Connected {
				if !c.awaitPing {
					if pingErr := c.sendPing(); pingErr != nil {
						return nil, pingErr
					}
				} else {
					c.opts.logger.Warn("peer unresponsive to ping, unbinding")
					c.unbind()
				}
			} else {
				return nil, err
			}
		default:
			return nil, err
		}

		if c.normalized() {
			return nil, nil
		}
	}
}

// normalized reports whether the session is Connected and fully quiescent:
// no outstanding ping and every queue empty.
func (c *Client) normalized() bool {
	return c.state == Connected &&
		!c.awaitPing &&
		len(c.outgoingAck) == 0 &&
		len(c.outgoingRec) == 0 &&
		len(c.outgoingComp) == 0 &&
		len(c.incomingRec) == 0 &&
		len(c.incomingRel) == 0 &&
		len(c.awaitSuback) == 0 &&
		len(c.awaitUnsuback) == 0
}

// accept reads and dispatches exactly one packet, or synthesizes Timeout,
// or attempts a reconnect when disconnected or when the transport reports
// the connection is gone.
func (c *Client) accept() (*Message, error) {
	if c.state == Disconnected {
		if c.tryReconnect() {
			return nil, nil
		}
		return nil, ErrDisconnected
	}

	elapsed := time.Since(c.lastFlush)
	if elapsed >= c.opts.keepAlive {
		return nil, ErrTimeout
	}
	if err := c.transport.SetReadDeadline(time.Now().Add(c.opts.keepAlive - elapsed)); err != nil {
		return nil, err
	}

	pkt, err := packets.ReadPacket(c.transport)
	if err != nil {
		return c.handleReadError(err)
	}

	msg, err := c.dispatch(pkt)
	if err != nil {
		c.opts.logger.Error("protocol error, unbinding", "error", err)
		c.unbind()
		if c.tryReconnect() {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

func (c *Client) handleReadError(err error) (*Message, error) {
	te := transport.Classify(err)
	switch te.Kind {
	case transport.WouldBlock, transport.TimedOut:
		return nil, ErrTimeout
	case transport.UnexpectedEOF, transport.ConnectionRefused, transport.ConnectionReset, transport.ConnectionAborted:
		c.opts.logger.Error("connection lost", "error", err)
		c.unbind()
		if c.tryReconnect() {
			return nil, nil
		}
		return nil, ErrDisconnected
	default:
		c.opts.logger.Error("read failed, unbinding", "error", err)
		c.unbind()
		return nil, te
	}
}

// dispatch routes one decoded packet through the state-specific handler.
func (c *Client) dispatch(pkt packets.Packet) (*Message, error) {
	switch c.state {
	case Handshake:
		return c.dispatchHandshake(pkt)
	case Connected:
		return c.dispatchConnected(pkt)
	default:
		return nil, ErrConnectionAbort
	}
}

func (c *Client) dispatchHandshake(pkt packets.Packet) (*Message, error) {
	connack, ok := pkt.(*packets.ConnackPacket)
	if !ok {
		return nil, ErrHandshakeFailed
	}
	if connack.ReturnCode != packets.ConnAccepted {
		return nil, &ConnectionRefusedError{Code: connack.ReturnCode}
	}
	c.sessionPresent = connack.SessionPresent
	c.state = Connected
	c.opts.logger.Info("connected", "client_id", c.opts.clientID, "session_present", c.sessionPresent)
	return nil, nil
}

func (c *Client) dispatchConnected(pkt packets.Packet) (*Message, error) {
	switch p := pkt.(type) {
	case *packets.ConnackPacket:
		return nil, ErrAlreadyConnected
	case *packets.PublishPacket:
		return c.handlePublish(p)
	case *packets.PubackPacket:
		return nil, c.handlePuback(p)
	case *packets.PubrecPacket:
		return nil, c.handlePubrec(p)
	case *packets.PubrelPacket:
		return c.handlePubrel(p)
	case *packets.PubcompPacket:
		return nil, c.handlePubcomp(p)
	case *packets.SubackPacket:
		return nil, c.handleSuback(p)
	case *packets.UnsubackPacket:
		return nil, c.handleUnsuback(p)
	case *packets.PingrespPacket:
		c.awaitPing = false
		return nil, nil
	default:
		return nil, ErrUnrecognizedPacket
	}
}

func (c *Client) handlePublish(p *packets.PublishPacket) (*Message, error) {
	path, err := topic.ToName(p.Topic)
	if err != nil {
		return nil, fmt.Errorf("mqttc: %w", err)
	}

	qos := QoS(p.QoS)
	msg := &Message{
		Topic:   path,
		Payload: p.Payload,
		QoS:     qos,
		Retain:  p.Retain,
		Pid:     p.PacketID,
		HasPid:  qos != AtMostOnce,
	}

	switch qos {
	case AtMostOnce:
		return msg, nil

	case AtLeastOnce:
		if err := c.writePacket(&packets.PubackPacket{PacketID: p.PacketID}); err != nil {
			return nil, err
		}
		c.flush()
		return msg, nil

	case ExactlyOnce:
		if c.opts.incomingStore == nil {
			return nil, ErrIncomingStorageAbsent
		}
		if _, err := c.opts.incomingStore.Get(p.PacketID); err != nil {
			// Not a duplicate: first time we've seen this pid.
			if err := c.opts.incomingStore.Put(toStoreMessage(msg)); err != nil {
				return nil, &StorageError{Pid: p.PacketID, Err: err}
			}
			c.incomingRec = append(c.incomingRec, p.PacketID)
		}
		if err := c.writePacket(&packets.PubrecPacket{PacketID: p.PacketID}); err != nil {
			return nil, err
		}
		c.flush()
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: qos %d", ErrProtocolViolation, p.QoS)
	}
}

func (c *Client) handlePuback(p *packets.PubackPacket) error {
	if len(c.outgoingAck) == 0 {
		return &UnhandledAckError{PacketType: "PUBACK", Pid: p.PacketID}
	}
	head := c.outgoingAck[0]
	if head.pid != p.PacketID || head.qos != AtLeastOnce {
		return &UnhandledAckError{PacketType: "PUBACK", Pid: p.PacketID}
	}
	c.outgoingAck = c.outgoingAck[1:]
	if c.opts.outgoingStore != nil {
		_ = c.opts.outgoingStore.Delete(p.PacketID)
	}
	return nil
}

func (c *Client) handlePubrec(p *packets.PubrecPacket) error {
	if len(c.outgoingRec) == 0 {
		return &UnhandledAckError{PacketType: "PUBREC", Pid: p.PacketID}
	}
	head := c.outgoingRec[0]
	if head.pid != p.PacketID {
		return &UnhandledAckError{PacketType: "PUBREC", Pid: p.PacketID}
	}
	c.outgoingRec = c.outgoingRec[1:]
	if err := c.writePacket(&packets.PubrelPacket{PacketID: p.PacketID}); err != nil {
		return err
	}
	c.flush()
	c.outgoingComp = append(c.outgoingComp, p.PacketID)
	if c.opts.outgoingStore != nil {
		_ = c.opts.outgoingStore.Delete(p.PacketID)
	}
	return nil
}

func (c *Client) handlePubrel(p *packets.PubrelPacket) (*Message, error) {
	if len(c.incomingRec) == 0 {
		return nil, &UnhandledAckError{PacketType: "PUBREL", Pid: p.PacketID}
	}
	head := c.incomingRec[0]
	if head != p.PacketID {
		return nil, &UnhandledAckError{PacketType: "PUBREL", Pid: p.PacketID}
	}
	c.incomingRec = c.incomingRec[1:]

	if c.opts.incomingStore == nil {
		return nil, ErrIncomingStorageAbsent
	}
	stored, err := c.opts.incomingStore.Get(p.PacketID)
	if err != nil {
		// Already completed in a prior connection: nothing to deliver.
		// Record the pid so a subsequent Complete(pid) is a no-op rather
		// than a protocol violation (spec.md §7).
		if err := c.writePacket(&packets.PubcompPacket{PacketID: p.PacketID}); err != nil {
			return nil, err
		}
		c.flush()
		c.autoCompleted = append(c.autoCompleted, p.PacketID)
		return nil, nil
	}

	c.incomingRel = append(c.incomingRel, p.PacketID)
	return fromStoreMessage(stored), nil
}

func (c *Client) handlePubcomp(p *packets.PubcompPacket) error {
	if len(c.outgoingComp) == 0 || c.outgoingComp[0] != p.PacketID {
		return &UnhandledAckError{PacketType: "PUBCOMP", Pid: p.PacketID}
	}
	c.outgoingComp = c.outgoingComp[1:]
	return nil
}

func (c *Client) handleSuback(p *packets.SubackPacket) error {
	if len(c.awaitSuback) == 0 {
		return fmt.Errorf("%w: unexpected SUBACK for pid %d", ErrProtocolViolation, p.PacketID)
	}
	head := c.awaitSuback[0]
	if head.pid != p.PacketID {
		return fmt.Errorf("%w: SUBACK pid %d, expected %d", ErrProtocolViolation, p.PacketID, head.pid)
	}
	if len(p.Results) != len(head.topics) {
		return fmt.Errorf("%w: SUBACK carries %d codes for %d topics", ErrProtocolViolation, len(p.Results), len(head.topics))
	}
	c.awaitSuback = c.awaitSuback[1:]

	for i, result := range p.Results {
		t := head.topics[i]
		if result.Failure {
			continue
		}
		c.subscriptions[t.filter] = subscription{pid: p.PacketID, path: t.path, qos: QoS(result.QoS)}
	}
	return nil
}

func (c *Client) handleUnsuback(p *packets.UnsubackPacket) error {
	if len(c.awaitUnsuback) == 0 {
		return fmt.Errorf("%w: unexpected UNSUBACK for pid %d", ErrProtocolViolation, p.PacketID)
	}
	head := c.awaitUnsuback[0]
	if head.pid != p.PacketID {
		return fmt.Errorf("%w: UNSUBACK pid %d, expected %d", ErrProtocolViolation, p.PacketID, head.pid)
	}
	c.awaitUnsuback = c.awaitUnsuback[1:]
	for _, f := range head.filters {
		delete(c.subscriptions, f)
	}
	return nil
}

// Complete finishes a QoS 2 receive: the caller invokes it after processing
// the Message delivered from Await following a PUBREL. It pops the tail of
// incomingRel (which must equal pid), emits PUBCOMP, and deletes the
// incoming-store entry.
func (c *Client) Complete(pid uint16) error {
	n := len(c.incomingRel)
	if n == 0 || c.incomingRel[n-1] != pid {
		if i := pidIndex(c.autoCompleted, pid); i >= 0 {
			c.autoCompleted = append(c.autoCompleted[:i], c.autoCompleted[i+1:]...)
			return nil
		}
		return fmt.Errorf("%w: complete(%d) does not match tail of incoming_rel", ErrProtocolViolation, pid)
	}
	c.incomingRel = c.incomingRel[:n-1]

	if err := c.writePacket(&packets.PubcompPacket{PacketID: pid}); err != nil {
		return err
	}
	c.flush()

	if c.opts.incomingStore != nil {
		_ = c.opts.incomingStore.Delete(pid)
	}
	return nil
}

func (c *Client) sendPing() error {
	c.awaitPing = true
	c.opts.logger.Debug("pingreq")
	if err := c.writePacket(&packets.PingreqPacket{}); err != nil {
		return err
	}
	c.flush()
	return nil
}

// Ping sends an explicit PINGREQ outside of the keep-alive loop.
func (c *Client) Ping() error { return c.sendPing() }

func pidIndex(pids []uint16, pid uint16) int {
	for i, p := range pids {
		if p == pid {
			return i
		}
	}
	return -1
}
