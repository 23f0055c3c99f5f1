package mqttc

import (
	"context"
	"fmt"

	"github.com/gonzalop/mqttc/internal/packets"
	"github.com/gonzalop/mqttc/store"
	"github.com/gonzalop/mqttc/topic"
)

// PubOpt is the bitfield spec.md §4.5 describes for Publish: QoS level and
// the retain flag.
type PubOpt struct {
	qos    QoS
	retain bool
}

// PublishOption is a functional option configuring a PubOpt.
type PublishOption func(*PubOpt)

// WithQoS sets the Quality of Service level for a publish. Default is
// AtMostOnce.
func WithQoS(qos QoS) PublishOption {
	return func(o *PubOpt) { o.qos = qos }
}

// WithRetain sets the PUBLISH retain flag. Default is false.
func WithRetain(retain bool) PublishOption {
	return func(o *PubOpt) { o.retain = retain }
}

func newPubOpt(opts ...PublishOption) PubOpt {
	var o PubOpt
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Publish validates topicName as a topic name (no wildcards), assigns a
// packet identifier and durable store entry for QoS>0, and writes the
// PUBLISH packet. It blocks on the configured rate limiter, if any.
func (c *Client) Publish(ctx context.Context, topicName string, payload []byte, opts ...PublishOption) error {
	opt := newPubOpt(opts...)

	path, err := topic.ToName(topicName)
	if err != nil {
		return fmt.Errorf("mqttc: %w", err)
	}

	if c.opts.publishLimiter != nil {
		if err := c.opts.publishLimiter.Wait(ctx); err != nil {
			return err
		}
	}

	pkt := &packets.PublishPacket{
		QoS:     uint8(opt.qos),
		Retain:  opt.retain,
		Topic:   path.String(),
		Payload: payload,
	}

	switch opt.qos {
	case AtMostOnce:
		// no bookkeeping

	case AtLeastOnce:
		pid := c.nextPid()
		pkt.PacketID = pid
		if c.opts.outgoingStore != nil {
			if err := c.opts.outgoingStore.Put(storeEntry(path, opt, pid, payload)); err != nil {
				return &StorageError{Outgoing: true, Pid: pid, Err: err}
			}
		}
		c.outgoingAck = append(c.outgoingAck, pendingPublish{pid: pid, qos: AtLeastOnce})

	case ExactlyOnce:
		if c.opts.outgoingStore == nil {
			return ErrOutgoingStorageAbsent
		}
		pid := c.nextPid()
		pkt.PacketID = pid
		if err := c.opts.outgoingStore.Put(storeEntry(path, opt, pid, payload)); err != nil {
			return &StorageError{Outgoing: true, Pid: pid, Err: err}
		}
		c.outgoingRec = append(c.outgoingRec, pendingPublish{pid: pid, qos: ExactlyOnce})

	default:
		return fmt.Errorf("mqttc: %w: qos %d", ErrProtocolViolation, opt.qos)
	}

	c.opts.logger.Debug("publish", "topic", path.String(), "qos", opt.qos, "bytes", len(payload))
	if err := c.writePacket(pkt); err != nil {
		return err
	}
	c.flush()
	return nil
}

func storeEntry(path topic.Path, opt PubOpt, pid uint16, payload []byte) store.Message {
	return store.Message{
		Topic:   path.String(),
		QoS:     uint8(opt.qos),
		Retain:  opt.retain,
		Pid:     pid,
		Payload: payload,
	}
}
