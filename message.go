package mqttc

import (
	"github.com/gonzalop/mqttc/store"
	"github.com/gonzalop/mqttc/topic"
)

// Message is the engine's canonical in-flight unit, delivered to the caller
// from Await and handed back (by reference, via the store) across a
// reconnect.
//
// Invariant: HasPid is true iff QoS != AtMostOnce.
type Message struct {
	Topic   topic.Path
	Payload []byte
	QoS     QoS
	Retain  bool
	Pid     uint16
	HasPid  bool
}

// toStoreMessage narrows a Message to the store's wire-agnostic shape.
func toStoreMessage(m *Message) store.Message {
	return store.Message{
		Topic:   m.Topic.String(),
		QoS:     uint8(m.QoS),
		Retain:  m.Retain,
		Pid:     m.Pid,
		Payload: m.Payload,
	}
}

// fromStoreMessage widens a stored message back into the engine's Message,
// reparsing its topic. The topic was validated as a name before it was ever
// stored, so a parse failure here would indicate store corruption.
func fromStoreMessage(sm store.Message) *Message {
	path, err := topic.ToName(sm.Topic)
	if err != nil {
		path, _ = topic.Parse(sm.Topic)
	}
	qos := QoS(sm.QoS)
	return &Message{
		Topic:   path,
		Payload: sm.Payload,
		QoS:     qos,
		Retain:  sm.Retain,
		Pid:     sm.Pid,
		HasPid:  qos != AtMostOnce,
	}
}
