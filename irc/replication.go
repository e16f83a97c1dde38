package irc

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

const sendTimeout = 5 * time.Second

// MetaData is a single replicated item.
type MetaData struct {
	Key   string
	Value string
}

// LinkHandler receives events from a replication link.
type LinkHandler interface {
	// OnSyncRequest returns the items to send to a peer that asked for a full copy of local state.
	// The link delivers them to that peer only.
	OnSyncRequest() []MetaData

	// OnMetaData is called for each metadata item sent by a peer. It reports whether the key was recognised.
	OnMetaData(key, value string) bool
}

// Link carries opaque metadata between peer servers.
type Link interface {
	// SendMetaData broadcasts an item to every peer.
	SendMetaData(ctx context.Context, key, value string) error

	// RequestSync asks every peer for a full copy of its state.
	RequestSync(ctx context.Context) error

	// Listen delivers peer events to h until ctx is cancelled or the link fails. ready is called
	// once, after the link is subscribed to everything a sync reply can arrive on.
	Listen(ctx context.Context, h LinkHandler, ready func()) error
}

type MockLink struct {
	mock.Mock
}

func (m *MockLink) SendMetaData(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)

	return args.Error(0)
}

func (m *MockLink) RequestSync(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockLink) Listen(ctx context.Context, h LinkHandler, ready func()) error {
	args := m.Called(ctx, h, ready)

	return args.Error(0)
}

// ReplicationBridge copies ban entries between the local BanMgr and peer servers.
// Inbound entries are added without any duplicate or conflict check; copies of the same ban on
// different servers expire independently.
//
// Locally added bans are queued by Announce and sent by Run, so command handling never waits on the network.
type ReplicationBridge struct {
	Bans   BanMgr
	Codec  BanCodec
	Link   Link
	Logger Logger

	outMu  sync.Mutex
	outbox []BanEntry
	wake   chan struct{}
}

func NewReplicationBridge(link Link) *ReplicationBridge {
	return &ReplicationBridge{
		Link: link,
		wake: make(chan struct{}, 1),
	}
}

// OnSyncRequest encodes every stored ban for a requesting peer.
func (rb *ReplicationBridge) OnSyncRequest() []MetaData {
	var items []MetaData
	for b := range rb.Bans.All() {
		items = append(items, MetaData{Key: BanMetaKey, Value: rb.Codec.Encode(b)})
	}

	rb.Logger.Debug("Prepared ban list for peer", "count", len(items))

	return items
}

// OnMetaData decodes a replicated ban and adds it to the store.
func (rb *ReplicationBridge) OnMetaData(key, value string) bool {
	if key != BanMetaKey {
		return false
	}

	b, err := rb.Codec.Decode(value)
	if err != nil {
		rb.Logger.Error("Rejected replicated ban", "line", value, "err", err)
		return true
	}

	rb.Bans.Add(b)
	rb.Logger.Debug("Received replicated ban", "channel", b.Channel, "setBy", b.SetBy, "duration", b.Duration)

	return true
}

// Announce queues a newly added ban for peers. It never blocks.
func (rb *ReplicationBridge) Announce(b BanEntry) {
	rb.outMu.Lock()
	rb.outbox = append(rb.outbox, b)
	rb.outMu.Unlock()

	select {
	case rb.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued bans not yet sent.
func (rb *ReplicationBridge) Pending() int {
	rb.outMu.Lock()
	defer rb.outMu.Unlock()

	return len(rb.outbox)
}

// Flush sends every queued ban in the order they were announced. Send failures are logged and the ban is dropped.
func (rb *ReplicationBridge) Flush(ctx context.Context) {
	rb.outMu.Lock()
	pending := rb.outbox
	rb.outbox = nil
	rb.outMu.Unlock()

	for _, b := range pending {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := rb.Link.SendMetaData(sendCtx, BanMetaKey, rb.Codec.Encode(b))
		cancel()

		if err != nil {
			rb.Logger.Error("Error announcing channel ban", "channel", b.Channel, "err", err)
		}
	}
}

// Run sends announced bans until ctx is cancelled.
func (rb *ReplicationBridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rb.wake:
			rb.Flush(ctx)
		}
	}
}
