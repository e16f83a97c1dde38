package irc

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"
)

type ClientID uint32

type ClientManager interface {
	List() []*ClientConn // Returns list of sorted clients
	Get(id ClientID) *ClientConn
	Add(cc *ClientConn)
	Delete(id ClientID)
}

type MockClientMgr struct {
	mock.Mock
}

func (m *MockClientMgr) List() []*ClientConn {
	args := m.Called()

	return args.Get(0).([]*ClientConn)
}

func (m *MockClientMgr) Get(id ClientID) *ClientConn {
	args := m.Called(id)

	return args.Get(0).(*ClientConn)
}

func (m *MockClientMgr) Add(cc *ClientConn) {
	m.Called(cc)
}

func (m *MockClientMgr) Delete(id ClientID) {
	m.Called(id)
}

type MemClientMgr struct {
	clients map[ClientID]*ClientConn

	mu           sync.Mutex
	nextClientID atomic.Uint32
}

func NewMemClientMgr() *MemClientMgr {
	return &MemClientMgr{
		clients: make(map[ClientID]*ClientConn),
	}
}

// List returns slice of sorted clients.
func (cm *MemClientMgr) List() []*ClientConn {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var clients []*ClientConn
	for _, client := range cm.clients {
		clients = append(clients, client)
	}

	slices.SortFunc(clients, clientConnSortFunc)

	return clients
}

func (cm *MemClientMgr) Get(id ClientID) *ClientConn {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	return cm.clients[id]
}

// Add assigns the next client ID to cc and stores it.
func (cm *MemClientMgr) Add(cc *ClientConn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cc.ID = ClientID(cm.nextClientID.Add(1))

	cm.clients[cc.ID] = cc
}

func (cm *MemClientMgr) Delete(id ClientID) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	delete(cm.clients, id)
}

var clientConnSortFunc = func(a, b *ClientConn) int {
	return cmp.Compare(a.ID, b.ID)
}

// FindNick returns the client using nick, compared under IRC casefolding.
func FindNick(cm ClientManager, nick string) *ClientConn {
	folded := Casefold(nick)
	for _, c := range cm.List() {
		if c.Nick != "" && Casefold(c.Nick) == folded {
			return c
		}
	}
	return nil
}

// Operators returns the connected clients holding oper privilege.
func Operators(cm ClientManager) []*ClientConn {
	var opers []*ClientConn
	for _, c := range cm.List() {
		if c.IsOperator() {
			opers = append(opers, c)
		}
	}
	return opers
}
