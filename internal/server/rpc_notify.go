package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/warpdl/warpsched/common"
	"github.com/warpdl/warpsched/pkg/schedule"
)

const (
	notifyQueueSize = 32
	notifyTimeout   = 5 * time.Second
)

type notification struct {
	method string
	params any
}

// RPCNotifier maintains a set of connected jrpc2 WebSocket servers
// and broadcasts push notifications to all of them.
//
// It implements schedule.EventSink: Emit queues the notification and returns
// at once, a single goroutine delivers queued notifications in order.
type RPCNotifier struct {
	mu      sync.RWMutex
	servers map[*jrpc2.Server]struct{}
	log     *log.Logger

	queue     chan notification
	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

var _ schedule.EventSink = (*RPCNotifier)(nil)

// NewRPCNotifier creates a new notifier.
func NewRPCNotifier(l *log.Logger) *RPCNotifier {
	return &RPCNotifier{
		servers: make(map[*jrpc2.Server]struct{}),
		log:     l,
		queue:   make(chan notification, notifyQueueSize),
		done:    make(chan struct{}),
	}
}

// Register adds a server to the broadcast set.
func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.servers[srv] = struct{}{}
}

// Unregister removes a server from the broadcast set.
func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.servers, srv)
}

// Emit translates an engine event into a push notification. Level changes
// become common.NotifyStateChanged; other events are pushed under their own
// name. Notifications are dropped if the queue is full or after Close.
func (n *RPCNotifier) Emit(event string, payload any) {
	note := notification{method: event, params: payload}
	if level, ok := payload.(string); ok && event == schedule.EventName {
		note = notification{
			method: common.NotifyStateChanged,
			params: &common.StateChangedParams{Level: level},
		}
	}
	n.startOnce.Do(func() { go n.run() })
	select {
	case <-n.done:
	case n.queue <- note:
	default:
		n.logf("RPC push queue full, dropping %s", note.method)
	}
}

func (n *RPCNotifier) run() {
	for {
		select {
		case <-n.done:
			return
		case note := <-n.queue:
			n.Broadcast(note.method, note.params)
		}
	}
}

// Close stops delivery of queued notifications.
func (n *RPCNotifier) Close() {
	n.closeOnce.Do(func() { close(n.done) })
}

// Broadcast sends a push notification to all registered servers.
// Servers that fail to receive (e.g., disconnected) are unregistered.
func (n *RPCNotifier) Broadcast(method string, params any) {
	n.mu.RLock()
	servers := make([]*jrpc2.Server, 0, len(n.servers))
	for srv := range n.servers {
		servers = append(servers, srv)
	}
	n.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range servers {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		err := srv.Notify(ctx, method, params)
		cancel()
		if err != nil {
			n.logf("RPC push failed: %v", err)
			failed = append(failed, srv)
		}
	}

	if len(failed) > 0 {
		n.mu.Lock()
		for _, srv := range failed {
			delete(n.servers, srv)
		}
		n.mu.Unlock()
	}
}

// Count returns the number of registered servers.
func (n *RPCNotifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.servers)
}

func (n *RPCNotifier) logf(format string, args ...any) {
	if n.log != nil {
		n.log.Printf(format, args...)
	}
}
