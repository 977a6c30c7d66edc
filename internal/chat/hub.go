package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"geochat/internal/history"
	"geochat/internal/metrics"
	"geochat/internal/models"
	"geochat/internal/presence"
	"geochat/internal/preview"
)

// inbound pairs a client event with the connection it arrived on.
type inbound struct {
	client *Client
	event  models.ClientEvent
}

// Hub mediates every inbound client event and fans resulting state out to
// all connected clients. All hub state mutates on the single Run goroutine,
// so events are processed in arrival order and every subscriber observes one
// total order of broadcasts.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	events     chan inbound

	// Chat messages that left the loop for a preview fetch re-enter here.
	completed chan models.Message

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	registry *presence.Registry
	history  *history.Store
	previews *preview.Fetcher // nil disables link previews
	log      zerolog.Logger
}

func NewHub(registry *presence.Registry, store *history.Store, previews *preview.Fetcher, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan inbound),
		completed:  make(chan models.Message),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		registry:   registry,
		history:    store,
		previews:   previews,
		log:        logger.With().Str("component", "hub").Logger(),
	}
}

// Run is the hub's event loop. Call it once, in its own goroutine; it exits
// when Stop is called.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			return

		case client := <-h.register:
			h.clients[client.id] = client
			metrics.ConnectedClients.Inc()
			h.log.Info().Str("conn", client.id).Int("clients", len(h.clients)).Msg("client connected")
			h.sendHistory(client)

		case client := <-h.unregister:
			h.dropClient(client)

		case in := <-h.events:
			h.dispatch(in.client, in.event)

		case msg := <-h.completed:
			h.commit(msg)
		}
	}
}

// Stop ends the event loop and waits for it to finish.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
	<-h.done
}

func (h *Hub) dispatch(c *Client, ev models.ClientEvent) {
	// The connection may have been cut loose as a slow client while this
	// event was still queued; its send channel is closed, so nothing here
	// may touch it.
	if _, ok := h.clients[c.id]; !ok {
		return
	}

	switch ev.Type {
	case models.EventReportLocation:
		h.handleReportLocation(c, ev)

	case models.EventPlayerMove:
		if !c.active {
			return
		}
		if h.registry.UpdatePosition(c.id, ev.Lat, ev.Lng) {
			h.broadcastSnapshot()
		}

	case models.EventUpdateProfile:
		h.handleUpdateProfile(c, ev.Name, ev.Avatar)

	case models.EventChangeName:
		// Legacy clients send changeName{newName}; treat it as a name-only
		// profile update.
		h.handleUpdateProfile(c, ev.NewName, nil)

	case models.EventSendChat:
		h.handleSendChat(c, ev.Text)

	default:
		h.log.Debug().Str("conn", c.id).Str("type", ev.Type).Msg("ignoring unknown event")
	}
}

func (h *Hub) handleReportLocation(c *Client, ev models.ClientEvent) {
	avatar := ""
	if ev.Avatar != nil {
		avatar = *ev.Avatar
	}
	p := h.registry.UpsertOnReport(c.id, ev.Lat, ev.Lng, avatar)

	first := !c.active
	c.active = true

	h.broadcastSnapshot()
	h.unicast(c, models.YourNameIsEvent{Type: models.EventYourNameIs, Name: p.Name})
	if first {
		h.broadcastSystem(p.Name + " connected")
	}
}

func (h *Hub) handleUpdateProfile(c *Client, name, avatar *string) {
	if !c.active {
		return
	}

	oldName, renamed := h.registry.UpdateProfile(c.id, name, avatar)
	h.broadcastSnapshot()
	if renamed {
		h.broadcastSystem(oldName + " is now known as " + *name)
	}
}

func (h *Hub) handleSendChat(c *Client, text string) {
	if !c.active {
		return
	}
	sender, ok := h.registry.Get(c.id)
	if !ok {
		return
	}

	msg := models.Message{
		SenderID: c.id,
		Name:     sender.Name,
		Avatar:   sender.Avatar,
		Text:     text,
		Time:     time.Now().UnixMilli(),
	}

	// The preview fetch is the one suspension point in the chat path. It runs
	// off-loop so other connections keep being served; the finished message
	// re-enters through the completed channel.
	if h.previews != nil && preview.ExtractURL(text) != "" {
		go func() {
			msg.Preview = h.previews.Fetch(text)
			if msg.Preview != nil {
				metrics.PreviewFetches.WithLabelValues("attached").Inc()
			} else {
				metrics.PreviewFetches.WithLabelValues("missed").Inc()
			}
			h.completed <- msg
		}()
		return
	}

	h.commit(msg)
}

// commit persists a chat message and broadcasts it.
func (h *Hub) commit(msg models.Message) {
	h.history.Append(msg)
	metrics.MessagesBroadcast.WithLabelValues("chat").Inc()
	h.broadcastEvent(models.ChatMessageEvent{Type: models.EventChatMessage, Message: msg})
}

// dropClient finalizes a disconnect. Departure is announced only for
// connections that reached the active state.
func (h *Hub) dropClient(c *Client) {
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
		metrics.ConnectedClients.Dec()
		h.log.Info().Str("conn", c.id).Int("clients", len(h.clients)).Msg("client disconnected")
	}

	if !c.active {
		return
	}
	if p, ok := h.registry.Remove(c.id); ok {
		h.broadcastSystem(p.Name + " disconnected")
		h.broadcastSnapshot()
	}
}

// broadcastSystem fans out a server announcement. System messages are
// ephemeral: broadcast only, never appended to history.
func (h *Hub) broadcastSystem(text string) {
	metrics.MessagesBroadcast.WithLabelValues("system").Inc()
	h.broadcastEvent(models.ChatMessageEvent{Type: models.EventChatMessage, Message: models.SystemMessage(text)})
}

func (h *Hub) broadcastSnapshot() {
	h.broadcastEvent(models.UpdateMapEvent{Type: models.EventUpdateMap, Users: h.registry.Snapshot()})
}

func (h *Hub) broadcastEvent(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("could not encode broadcast event")
		return
	}
	for id, client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Client cannot keep up; cut it loose. Its readPump will follow
			// up through unregister and finish the presence cleanup.
			delete(h.clients, id)
			close(client.send)
			metrics.ConnectedClients.Dec()
			h.log.Warn().Str("conn", id).Msg("dropping slow client")
		}
	}
}

func (h *Hub) unicast(c *Client, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("could not encode unicast event")
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// sendHistory hydrates a newly connected client with the current log.
func (h *Hub) sendHistory(c *Client) {
	h.unicast(c, models.HistoryEvent{Type: models.EventHistory, Messages: h.history.Current()})
}
