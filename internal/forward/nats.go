// Package forward republishes selected bridge events to NATS so home
// automation and other local consumers can react to station activity
// without polling the station themselves.
package forward

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/technosupport/svs-client/internal/bridge"
	"github.com/technosupport/svs-client/internal/models"
)

const publishRetries = 3

// Forwarder publishes poll results onto a NATS subject tree:
// <subject>.alerts, <subject>.homemode, <subject>.session.
type Forwarder struct {
	conn    *nats.Conn
	subject string
}

func New(url, subject string) (*Forwarder, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Forwarder{conn: conn, subject: subject}, nil
}

func (f *Forwarder) Close() {
	f.conn.Drain()
}

// Handler returns the bridge handler that feeds the forwarder. It
// runs on the dispatch loop, so publishes must not block: publish
// errors are retried briefly and then dropped with a log line.
func (f *Forwarder) Handler() bridge.Handler {
	return func(e bridge.Event) {
		switch ev := e.(type) {
		case bridge.PollResult:
			if ev.Err != nil {
				return
			}
			switch payload := ev.Payload.(type) {
			case []models.Alert:
				f.publish(f.subject+".alerts", payload)
			case models.HomeModeInfo:
				f.publish(f.subject+".homemode", payload)
			}
		case bridge.CredentialExpired:
			f.publish(f.subject+".session", map[string]string{"state": "expired"})
		}
	}
}

func (f *Forwarder) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[ERROR] Forward: marshal for %s: %v", subject, err)
		return
	}

	var lastErr error
	for i := 0; i <= publishRetries; i++ {
		if lastErr = f.conn.Publish(subject, data); lastErr == nil {
			return
		}
		time.Sleep(time.Duration(i*100) * time.Millisecond)
	}
	log.Printf("[ERROR] Forward: publish to %s failed after %d retries: %v", subject, publishRetries, lastErr)
}
