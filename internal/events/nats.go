package events

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const subjectPrefix = "trackerd.events."

// NATS mirrors broadcast events onto a NATS connection so out-of-process
// consumers can observe mutations. Core publish only, no JetStream; delivery
// is fire-and-forget like the websocket hub.
type NATS struct {
	conn *nats.Conn
}

// ConnectNATS dials the NATS endpoint and returns a publisher over it.
func ConnectNATS(url string, opts ...nats.Option) (*NATS, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NATS{conn: nc}, nil
}

// Publish sends the event to trackerd.events.<name> with ':' flattened to '.'.
func (n *NATS) Publish(_ context.Context, event string, payload any) {
	data, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("encode event")
		return
	}
	if err := n.conn.Publish(subjectPrefix+subjectSuffix(event), data); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("publish to nats")
	}
}

// Close drains the underlying connection.
func (n *NATS) Close() {
	if n == nil || n.conn == nil {
		return
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}

func subjectSuffix(event string) string {
	out := []byte(event)
	for i, b := range out {
		if b == ':' {
			out[i] = '.'
		}
	}
	return string(out)
}
