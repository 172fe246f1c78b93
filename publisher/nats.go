// Package publisher pushes run summaries to NATS for downstream
// consumers (dashboards, alerting). Publishing is best-effort: a
// failed publish never fails the run.
package publisher

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"caravela.dev/busmetrics"
)

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("busmetrics"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

func (p *NATSPublisher) PublishRunSummary(summary busmetrics.RunSummary) error {
	b, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, b)
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}
