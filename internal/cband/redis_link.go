package cband

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/relaymesh/cband/irc"
)

// RedisLink replicates metadata between servers over Redis pub/sub. Metadata messages on
// <prefix>:meta have the payload "<origin> <key> <value>"; sync requests on <prefix>:sync carry
// only the requesting origin and are answered on <prefix>:meta:<origin>.
type RedisLink struct {
	client      *redis.Client
	publish     func(ctx context.Context, channel, payload string) error
	origin      string
	metaChannel string
	syncChannel string
	logger      irc.Logger
}

// NewRedisLink connects to addr, which may be a host:port pair or a redis:// URL.
func NewRedisLink(addr, password, prefix, origin string, logger irc.Logger) (*RedisLink, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		var err error
		if opts, err = redis.ParseURL(addr); err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
	}
	if password != "" {
		opts.Password = password
	}

	l := newRedisLink(prefix, origin, logger)
	l.client = redis.NewClient(opts)
	l.publish = func(ctx context.Context, channel, payload string) error {
		return l.client.Publish(ctx, channel, payload).Err()
	}

	return l, nil
}

func newRedisLink(prefix, origin string, logger irc.Logger) *RedisLink {
	return &RedisLink{
		origin:      origin,
		metaChannel: prefix + ":meta",
		syncChannel: prefix + ":sync",
		logger:      logger,
	}
}

// burstChannel is where state dumps for origin are sent.
func (l *RedisLink) burstChannel(origin string) string {
	return l.metaChannel + ":" + origin
}

func encodeRedisMeta(origin, key, value string) string {
	return origin + " " + key + " " + value
}

func decodeRedisMeta(payload string) (origin, key, value string, ok bool) {
	origin, rest, ok := strings.Cut(payload, " ")
	if !ok {
		return "", "", "", false
	}
	key, value, _ = strings.Cut(rest, " ")

	return origin, key, value, true
}

func (l *RedisLink) SendMetaData(ctx context.Context, key, value string) error {
	return l.publish(ctx, l.metaChannel, encodeRedisMeta(l.origin, key, value))
}

func (l *RedisLink) RequestSync(ctx context.Context) error {
	return l.publish(ctx, l.syncChannel, l.origin)
}

func (l *RedisLink) Listen(ctx context.Context, h irc.LinkHandler, ready func()) error {
	sub := l.client.Subscribe(ctx, l.metaChannel, l.syncChannel, l.burstChannel(l.origin))
	defer func() { _ = sub.Close() }()

	// Redis applies all channels of one SUBSCRIBE together, so the first confirmation covers them all.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	l.logger.Info("Listening for peer metadata", "transport", "redis", "channel", l.metaChannel)
	ready()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			l.handleMessage(ctx, h, msg)
		}
	}
}

func (l *RedisLink) handleMessage(ctx context.Context, h irc.LinkHandler, msg *redis.Message) {
	switch msg.Channel {
	case l.metaChannel, l.burstChannel(l.origin):
		origin, key, value, ok := decodeRedisMeta(msg.Payload)
		if !ok {
			l.logger.Debug("Ignoring malformed metadata message", "payload", msg.Payload)
			return
		}
		if origin == l.origin {
			return
		}
		if !h.OnMetaData(key, value) {
			l.logger.Debug("Ignoring unknown metadata", "key", key, "origin", origin)
		}
	case l.syncChannel:
		requester := msg.Payload
		if requester == l.origin {
			return
		}

		items := h.OnSyncRequest()
		l.logger.Info("Peer requested sync", "origin", requester, "count", len(items))

		for _, item := range items {
			if err := l.publish(ctx, l.burstChannel(requester), encodeRedisMeta(l.origin, item.Key, item.Value)); err != nil {
				l.logger.Error("Error sending sync", "origin", requester, "err", err)
				return
			}
		}
	}
}

func (l *RedisLink) Close() error {
	return l.client.Close()
}
