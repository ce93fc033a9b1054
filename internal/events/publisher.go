package events

import (
	"Go2NetSwitch/internal/config"
	"Go2NetSwitch/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/projectdiscovery/gologger"
)

// Publisher is a model.EventSink that publishes every event to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.EventsConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("goswitch"))
	if err != nil {
		return nil, err
	}
	gologger.Info().Msgf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Emit publishes ev. NATS buffers the message, so this does not wait for the
// network. Failures are logged and otherwise ignored.
func (p *Publisher) Emit(ev model.Event) {
	data, err := Encode(ev)
	if err != nil {
		gologger.Verbose().Msgf("events: %v", err)
		return
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		gologger.Verbose().Msgf("events: failed to publish %s: %v", ev.Kind, err)
	}
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		gologger.Verbose().Msgf("NATS connection drained and closed.")
	}
}

var _ model.EventSink = (*Publisher)(nil)
