package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSUpstream mirrors every bus event onto a NATS subject tree so other
// services can follow match lifecycles.
type NATSUpstream struct {
	conn   *nats.Conn
	prefix string
}

// ConnectNATS dials the server and returns an upstream publishing under
// "<prefix>.<event type>".
func ConnectNATS(url, prefix string) (*NATSUpstream, error) {
	conn, err := nats.Connect(url, nats.Name("eights-backend"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSUpstream{conn: conn, prefix: prefix}, nil
}

func (n *NATSUpstream) Publish(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.prefix+"."+ev.Type, payload)
}

func (n *NATSUpstream) Close() {
	n.conn.Close()
}
