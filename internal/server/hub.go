// Package server coordinates client attachment, presence tracking, and event
// fan-out for the GoChat WebSocket system via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/gochat-presence/internal/metrics"
	"github.com/Tyrowin/gochat-presence/internal/presence"
)

// ErrHubStopped is returned by hub entry points once Run has exited.
var ErrHubStopped = errors.New("hub stopped")

// Hub is the single owner of presence state. Every connect, disconnect,
// inbound event, relay request, and snapshot read is handled in order on the
// Run goroutine, and the resulting events are fanned out to every attached
// client without blocking.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	inbound    chan clientEvent
	relay      chan relayRequest
	snapshots  chan chan []presence.UserPresence
	dispatcher *presence.Dispatcher
	logger     *zap.Logger
	metrics    *metrics.Collector
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// HubOption configures a Hub.
type HubOption func(*hubOptions)

type hubOptions struct {
	logger   *zap.Logger
	metrics  *metrics.Collector
	presence []presence.Option
}

// WithLogger sets the hub logger.
func WithLogger(logger *zap.Logger) HubOption {
	return func(o *hubOptions) { o.logger = logger }
}

// WithMetrics sets the collector the hub reports to.
func WithMetrics(c *metrics.Collector) HubOption {
	return func(o *hubOptions) { o.metrics = c }
}

// WithPresenceOptions passes options through to the presence state.
func WithPresenceOptions(opts ...presence.Option) HubOption {
	return func(o *hubOptions) { o.presence = append(o.presence, opts...) }
}

// NewHub creates a Hub. Call Run to start processing.
func NewHub(opts ...HubOption) *Hub {
	o := hubOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan clientEvent),
		relay:      make(chan relayRequest),
		snapshots:  make(chan chan []presence.UserPresence),
		dispatcher: presence.NewDispatcher(o.presence...),
		logger:     o.logger,
		metrics:    o.metrics,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register attaches a client. For clients with a live connection the hub
// starts the read and write pumps.
func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.ctx.Done():
		return ErrHubStopped
	}
}

// Unregister detaches a client and reports its disconnect.
func (h *Hub) Unregister(c *Client) error {
	select {
	case h.unregister <- c:
		return nil
	case <-h.ctx.Done():
		return ErrHubStopped
	}
}

// RelayLike broadcasts a messageLiked pulse for messageID.
func (h *Hub) RelayLike(ctx context.Context, messageID string) error {
	return h.enqueueRelay(ctx, relayRequest{name: presence.EventMessageLiked, messageID: messageID})
}

// RelayMessageActivity broadcasts payload as messageFromBack, followed by a
// presence snapshot.
func (h *Hub) RelayMessageActivity(ctx context.Context, payload json.RawMessage) error {
	return h.enqueueRelay(ctx, relayRequest{name: presence.EventMessage, payload: payload})
}

// NotifyMessageCreated tells clients a message was stored, carrying only its id.
func (h *Hub) NotifyMessageCreated(ctx context.Context, messageID string) error {
	payload, err := json.Marshal(messageID)
	if err != nil {
		return err
	}
	return h.RelayMessageActivity(ctx, payload)
}

// NotifyMessageChanged tells clients a stored message was edited or deleted.
// Clients refetch on the same messageFromBack pulse used for new messages.
func (h *Hub) NotifyMessageChanged(ctx context.Context, messageID string) error {
	return h.NotifyMessageCreated(ctx, messageID)
}

// NotifyMessageLiked tells clients a message's likes changed.
func (h *Hub) NotifyMessageLiked(ctx context.Context, messageID string) error {
	return h.RelayLike(ctx, messageID)
}

// Snapshot returns the current presence snapshot as seen by the Run loop.
func (h *Hub) Snapshot(ctx context.Context) ([]presence.UserPresence, error) {
	reply := make(chan []presence.UserPresence, 1)
	select {
	case h.snapshots <- reply:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrHubStopped
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) enqueueRelay(ctx context.Context, req relayRequest) error {
	select {
	case h.relay <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubStopped
	}
}

// dispatch queues an inbound client event. It returns false once the hub is
// shutting down.
func (h *Hub) dispatch(ev clientEvent) bool {
	select {
	case h.inbound <- ev:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Run starts the hub's main event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.logger.Warn("received nil client registration; skipping")
				continue
			}
			h.attach(client)

		case client := <-h.unregister:
			if h.drop(client, "disconnected") {
				h.metrics.InboundEvent("disconnect")
				h.publish(h.dispatcher.Disconnect(client.id))
			}

		case ev := <-h.inbound:
			h.handleClientEvent(ev)

		case req := <-h.relay:
			h.handleRelay(req)

		case reply := <-h.snapshots:
			reply <- h.dispatcher.Snapshot()
		}
	}
}

func (h *Hub) attach(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.logger.Info("client attached",
		zap.String("conn_id", client.id),
		zap.String("remote_addr", client.addr),
		zap.Int("clients", clientCount))
	h.metrics.SetConnections(clientCount)
	h.metrics.InboundEvent("connect")

	if client.conn != nil {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			client.writePump()
		}()
		go func() {
			defer h.wg.Done()
			client.readPump()
		}()
	}

	h.publish(h.dispatcher.Connect(client.id))
}

// drop detaches a client and closes its send channel. It reports whether the
// client was attached.
func (h *Hub) drop(client *Client, reason string) bool {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return false
	}
	delete(h.clients, client)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	h.logger.Info("client detached",
		zap.String("conn_id", client.id),
		zap.String("remote_addr", client.addr),
		zap.String("reason", reason),
		zap.Int("clients", clientCount))
	h.metrics.SetConnections(clientCount)
	return true
}

func (h *Hub) handleClientEvent(ev clientEvent) {
	if !h.clients[ev.client] {
		h.logger.Debug("ignoring event from detached client",
			zap.String("conn_id", ev.client.id), zap.String("event", ev.name))
		return
	}
	h.metrics.InboundEvent(ev.name)

	switch ev.name {
	case presence.EventRegister:
		h.publish(h.dispatcher.Register(ev.client.id, ev.registration))
	case presence.EventMessage:
		h.publish(h.dispatcher.Message(ev.client.id, ev.payload))
	case presence.EventMessageLiked:
		h.publish(h.dispatcher.Like(ev.messageID))
	default:
		h.logger.Warn("dropping unknown client event", zap.String("event", ev.name))
	}
}

func (h *Hub) handleRelay(req relayRequest) {
	h.metrics.InboundEvent("relay_" + req.name)

	switch req.name {
	case presence.EventMessageLiked:
		h.publish(h.dispatcher.Like(req.messageID))
	case presence.EventMessage:
		h.publish(h.dispatcher.Message("", req.payload))
	}
}

// publish fans events out in order. Clients that cannot accept a frame are
// dropped, and their disconnects are published after the pending events.
func (h *Hub) publish(events []presence.Event) {
	queue := events
	for len(queue) > 0 {
		ev := queue[0]
		queue = queue[1:]

		delivered, failed, err := presence.Broadcast(h.transports(), ev)
		if err != nil {
			h.logger.Error("failed to encode event", zap.String("event", ev.Name), zap.Error(err))
			continue
		}
		h.logger.Debug("broadcast event",
			zap.String("event", ev.Name),
			zap.Int("delivered", delivered),
			zap.Int("failed", len(failed)))
		h.metrics.OutboundFrames(ev.Name, delivered)
		h.metrics.DroppedDeliveries(len(failed))

		for _, t := range failed {
			client, ok := t.(*Client)
			if !ok {
				continue
			}
			if h.drop(client, "send buffer full") {
				queue = append(queue, h.dispatcher.Disconnect(client.id)...)
			}
		}
	}

	if h.metrics != nil {
		h.metrics.ObservePresence(h.dispatcher.State().Counts())
	}
}

// transports returns a point-in-time list of attached clients.
func (h *Hub) transports() []presence.Transport {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	out := make([]presence.Transport, 0, len(h.clients))
	for client := range h.clients {
		out = append(out, client)
	}
	return out
}

// shutdownClients closes every attached connection so the pumps exit.
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, client)
		client.closed = true
	}
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.logger.Warn("error closing client connection",
					zap.String("conn_id", client.id), zap.Error(err))
			}
		}
	}

	h.metrics.SetConnections(0)
	h.logger.Info("closed client connections", zap.Int("count", len(clients)))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
