package cband

import (
	"fmt"
	"io"

	"github.com/relaymesh/cband/irc"
)

// Link is a replication link that holds a connection to be released at shutdown.
type Link interface {
	irc.Link
	io.Closer
}

// NewLink connects the replication transport named in config. It returns nil when no transport is configured.
func NewLink(config irc.Config, logger irc.Logger) (Link, error) {
	switch config.Link.Transport {
	case "":
		return nil, nil
	case "nats":
		l, err := NewNATSLink(config.Link.URL, config.LinkPrefix(), config.ServerName, logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "redis":
		l, err := NewRedisLink(config.Link.URL, config.Link.Password, config.LinkPrefix(), config.ServerName, logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	}

	return nil, fmt.Errorf("unknown link transport %q", config.Link.Transport)
}
