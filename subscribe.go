package mqttc

import (
	"fmt"

	"github.com/gonzalop/mqttc/internal/packets"
	"github.com/gonzalop/mqttc/topic"
)

// SubscribeTopic is one (filter, requested QoS) pair passed to Subscribe.
type SubscribeTopic struct {
	Filter string
	QoS    QoS
}

// Subscribe parses and validates every filter, assigns one packet
// identifier for the whole request, enqueues it in awaitSuback, and writes
// a single SUBSCRIBE packet.
func (c *Client) Subscribe(topics ...SubscribeTopic) error {
	if len(topics) == 0 {
		return fmt.Errorf("mqttc: subscribe requires at least one topic")
	}

	parsed := make([]subscribeTopic, len(topics))
	wire := make([]packets.SubscribeTopic, len(topics))
	for i, t := range topics {
		path, err := topic.Parse(t.Filter)
		if err != nil {
			return fmt.Errorf("mqttc: %w", err)
		}
		parsed[i] = subscribeTopic{filter: t.Filter, path: path, qos: t.QoS}
		wire[i] = packets.SubscribeTopic{Filter: t.Filter, QoS: uint8(t.QoS)}
	}

	pid := c.nextPid()
	c.opts.logger.Debug("subscribe", "pid", pid, "count", len(topics))
	if err := c.writePacket(&packets.SubscribePacket{PacketID: pid, Topics: wire}); err != nil {
		return err
	}
	c.flush()

	c.awaitSuback = append(c.awaitSuback, pendingSubscribe{pid: pid, topics: parsed})
	return nil
}

// Unsubscribe assigns one packet identifier, enqueues it in awaitUnsuback,
// and writes a single UNSUBSCRIBE packet naming every filter.
func (c *Client) Unsubscribe(filters ...string) error {
	if len(filters) == 0 {
		return fmt.Errorf("mqttc: unsubscribe requires at least one filter")
	}

	pid := c.nextPid()
	c.opts.logger.Debug("unsubscribe", "pid", pid, "count", len(filters))
	if err := c.writePacket(&packets.UnsubscribePacket{PacketID: pid, Filters: filters}); err != nil {
		return err
	}
	c.flush()

	c.awaitUnsuback = append(c.awaitUnsuback, pendingUnsubscribe{pid: pid, filters: append([]string(nil), filters...)})
	return nil
}

// Subscriptions returns the currently granted subscriptions, keyed by
// filter string. The returned map is a snapshot; mutating it has no effect
// on the client.
func (c *Client) Subscriptions() map[string]SubscribeTopic {
	out := make(map[string]SubscribeTopic, len(c.subscriptions))
	for filter, sub := range c.subscriptions {
		out[filter] = SubscribeTopic{Filter: filter, QoS: sub.qos}
	}
	return out
}
