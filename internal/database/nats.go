package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// ConnectNATS dials the NATS server at url. An empty url returns a nil
// connection so callers can fall back to a no-op publisher.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil
	}

	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}
	return conn, nil
}
