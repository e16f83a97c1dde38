package cband

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/relaymesh/cband/irc"
)

const (
	headerOrigin = "Origin"
	headerKey    = "Key"
)

// NATSLink replicates metadata between servers over NATS subjects:
//
//	<prefix>.meta           one metadata item per message, key in the Key header
//	<prefix>.sync           requests for a full state dump, reply subject set
//	<prefix>.burst.<origin> state dumps addressed to a single server
//
// Every message carries the sending server's name in the Origin header so that a server ignores its own traffic.
type NATSLink struct {
	conn         *nats.Conn
	publish      func(m *nats.Msg) error
	origin       string
	metaSubject  string
	syncSubject  string
	burstSubject string
	logger       irc.Logger
}

func NewNATSLink(url, prefix, origin string, logger irc.Logger) (*NATSLink, error) {
	nc, err := nats.Connect(url, nats.Name(origin))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	l := newNATSLink(prefix, origin, logger)
	l.conn = nc
	l.publish = nc.PublishMsg

	return l, nil
}

func newNATSLink(prefix, origin string, logger irc.Logger) *NATSLink {
	return &NATSLink{
		origin:       origin,
		metaSubject:  prefix + ".meta",
		syncSubject:  prefix + ".sync",
		burstSubject: prefix + ".burst." + origin,
		logger:       logger,
	}
}

func (l *NATSLink) newMsg(subject, key, value string) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Header.Set(headerOrigin, l.origin)
	if key != "" {
		msg.Header.Set(headerKey, key)
	}
	msg.Data = []byte(value)

	return msg
}

func (l *NATSLink) SendMetaData(_ context.Context, key, value string) error {
	return l.publish(l.newMsg(l.metaSubject, key, value))
}

// RequestSync asks peers to send their state to this server's burst subject.
func (l *NATSLink) RequestSync(_ context.Context) error {
	msg := l.newMsg(l.syncSubject, "", "")
	msg.Reply = l.burstSubject

	return l.publish(msg)
}

func (l *NATSLink) Listen(ctx context.Context, h irc.LinkHandler, ready func()) error {
	for _, subject := range []string{l.metaSubject, l.burstSubject} {
		sub, err := l.conn.Subscribe(subject, func(m *nats.Msg) {
			l.handleMeta(h, m)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		defer func() { _ = sub.Unsubscribe() }()
	}

	syncSub, err := l.conn.Subscribe(l.syncSubject, func(m *nats.Msg) {
		l.handleSync(h, m)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", l.syncSubject, err)
	}
	defer func() { _ = syncSub.Unsubscribe() }()

	// Subscriptions are only registered with the server once the connection has flushed them.
	if err := l.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush subscriptions: %w", err)
	}

	l.logger.Info("Listening for peer metadata", "transport", "nats", "subject", l.metaSubject)
	ready()

	<-ctx.Done()

	return nil
}

func (l *NATSLink) fromSelf(m *nats.Msg) bool {
	return m.Header.Get(headerOrigin) == l.origin
}

func (l *NATSLink) handleMeta(h irc.LinkHandler, m *nats.Msg) {
	if l.fromSelf(m) {
		return
	}

	key := m.Header.Get(headerKey)
	if !h.OnMetaData(key, string(m.Data)) {
		l.logger.Debug("Ignoring unknown metadata", "key", key, "origin", m.Header.Get(headerOrigin))
	}
}

// handleSync sends local state to the requesting server only.
func (l *NATSLink) handleSync(h irc.LinkHandler, m *nats.Msg) {
	if l.fromSelf(m) {
		return
	}

	requester := m.Header.Get(headerOrigin)
	if m.Reply == "" {
		l.logger.Debug("Ignoring sync request without a reply subject", "origin", requester)
		return
	}

	items := h.OnSyncRequest()
	l.logger.Info("Peer requested sync", "origin", requester, "count", len(items))

	for _, item := range items {
		if err := l.publish(l.newMsg(m.Reply, item.Key, item.Value)); err != nil {
			l.logger.Error("Error sending sync", "origin", requester, "err", err)
			return
		}
	}
}

func (l *NATSLink) Close() error {
	return l.conn.Drain()
}
