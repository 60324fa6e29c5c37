package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// SubjectPrefix namespaces session updates; the session code is appended.
const SubjectPrefix = "sketchdash.sessions."

// NATS publishes updates to a NATS subject per session and delivers every
// update seen on the wildcard subject, including this instance's own.
type NATS struct {
	conn *nats.Conn
	sub  *nats.Subscription
	subs handlers
}

// ConnectNATS dials url, authenticating with token when it is set.
func ConnectNATS(url, token string) (*NATS, error) {
	opts := []nats.Option{
		nats.Name("sketchdash"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewNATS(conn)
}

// NewNATS subscribes on an existing connection. Close drains the
// subscription and closes conn.
func NewNATS(conn *nats.Conn) (*NATS, error) {
	b := &NATS{conn: conn}
	sub, err := conn.Subscribe(SubjectPrefix+"*", b.handleMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	b.sub = sub
	return b, nil
}

func (b *NATS) handleMessage(msg *nats.Msg) {
	var u Update
	if err := json.Unmarshal(msg.Data, &u); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("bad session update")
		return
	}
	if u.Session == nil {
		return
	}
	b.subs.dispatch(u)
}

func (b *NATS) Publish(_ context.Context, u Update) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(SubjectPrefix+u.Session.Code, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectPrefix+u.Session.Code, err)
	}
	return nil
}

func (b *NATS) Subscribe(h Handler) (func(), error) {
	return b.subs.add(h), nil
}

func (b *NATS) Close() error {
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("nats unsubscribe")
		}
	}
	return b.conn.Drain()
}
