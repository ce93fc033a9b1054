package events

import (
	"Go2NetSwitch/internal/config"
	"Go2NetSwitch/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/projectdiscovery/gologger"
)

// Handler processes one received event.
type Handler func(ev model.Event)

// Subscriber receives table events from a NATS subject.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.EventsConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	gologger.Info().Msgf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes and passes every decodable event to handler.
func (s *Subscriber) Start(handler Handler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		ev, err := Decode(msg.Data)
		if err != nil {
			gologger.Warning().Msgf("Dropping event: %v", err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	gologger.Info().Msgf("Subscribed to '%s'. Waiting for events...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		gologger.Verbose().Msgf("NATS connection closed.")
	}
}
