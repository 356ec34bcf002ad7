// internal/api/standings/hub.go
package standings

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	standingssvc "github.com/codr1/leaguestandings/internal/standings"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 8
)

// pushMessage is what subscribers receive for every new table.
type pushMessage struct {
	Type     string                 `json:"type"`
	Snapshot *standingssvc.Snapshot `json:"snapshot"`
}

// frame is an encoded push together with the stamp of the table it carries.
type frame struct {
	stamp   standingssvc.Stamp
	payload []byte
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	key  standingssvc.Key
	send chan frame
	// latest reports the newest cached table of the season, if any.
	latest func() (*standingssvc.Snapshot, bool)
	logger zerolog.Logger

	last    standingssvc.Stamp
	hasLast bool
}

// accept reports whether f moves the subscriber forward. Repeats and tables
// older than the last one written are skipped.
func (c *client) accept(f frame) bool {
	if c.hasLast && !f.stamp.Supersedes(c.last) {
		return false
	}
	c.last, c.hasLast = f.stamp, true
	return true
}

// Hub fans standings snapshots out to websocket subscribers of the season
// they belong to.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan *standingssvc.Snapshot
	done       chan struct{}
	upgrader   websocket.Upgrader
}

// NewHub builds a hub that accepts upgrades from allowedOrigins. An empty
// list accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = struct{}{}
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan *standingssvc.Snapshot, 64),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	logger := log.Ctx(ctx).With().Str("component", "standings_hub").Logger()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			logger.Info().Msg("Standings hub stopped")
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			logger.Debug().Str("season", c.key.String()).Int("clients", len(h.clients)).Msg("Subscriber registered")
			// A table published between the first read and registration
			// never reached this client; hand it the newest one now.
			if c.latest == nil {
				continue
			}
			if snapshot, ok := c.latest(); ok {
				f, err := encodeFrame(snapshot)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to encode standings push")
					continue
				}
				h.deliver(c, f, logger)
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			logger.Debug().Str("season", c.key.String()).Int("clients", len(h.clients)).Msg("Subscriber unregistered")

		case snapshot := <-h.broadcast:
			f, err := encodeFrame(snapshot)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to encode standings push")
				continue
			}
			key := snapshot.Key()
			for c := range h.clients {
				if c.key == key {
					h.deliver(c, f, logger)
				}
			}
		}
	}
}

// deliver queues f for c, dropping the client when its buffer is full.
func (h *Hub) deliver(c *client, f frame, logger zerolog.Logger) {
	select {
	case c.send <- f:
	default:
		close(c.send)
		delete(h.clients, c)
		logger.Warn().Str("season", c.key.String()).Msg("Dropped slow subscriber")
	}
}

// Publish queues a snapshot for subscribers. It never blocks; when the queue
// is full the snapshot is dropped and subscribers catch up on the next one.
func (h *Hub) Publish(snapshot *standingssvc.Snapshot) {
	select {
	case h.broadcast <- snapshot:
	default:
		log.Warn().Str("component", "standings_hub").Str("season", snapshot.Key().String()).Msg("Standings push queue full")
	}
}

func encodeFrame(snapshot *standingssvc.Snapshot) (frame, error) {
	payload, err := json.Marshal(pushMessage{Type: "standings", Snapshot: snapshot})
	if err != nil {
		return frame{}, err
	}
	return frame{stamp: snapshot.Stamp, payload: payload}, nil
}

// GET /api/v1/leagues/{league_id}/seasons/{season_id}/standings/ws
func HandleStandingsSocket(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	if hub == nil {
		log.Ctx(r.Context()).Error().Msg("Standings hub not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	leagueID, seasonID, ok := seasonFromPath(w, r)
	if !ok {
		return
	}
	hub.serve(w, r, svc, standingssvc.Key{LeagueID: leagueID, SeasonID: seasonID})
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, svc *standingssvc.Service, key standingssvc.Key) {
	logger := log.Ctx(r.Context()).With().Str("season", key.String()).Logger()

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	initial, err := svc.GetStandings(ctx, key.LeagueID, key.SeasonID)
	cancel()
	if err != nil {
		writeErrorFor(w, r, err)
		return
	}
	first, err := encodeFrame(initial)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode standings push")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		key:  key,
		send: make(chan frame, sendBuffer),
		latest: func() (*standingssvc.Snapshot, bool) {
			return svc.Cached(key.LeagueID, key.SeasonID)
		},
		logger: logger,
	}
	c.send <- first
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump()
}

// readPump only watches for close and pong frames; subscribers send nothing.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("Websocket closed unexpectedly")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.accept(f) {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, f.payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeErrorFor(w http.ResponseWriter, r *http.Request, err error) {
	herr := handlerError(err, "Failed to compute standings")
	http.Error(w, herr.Message, herr.Status)
	log.Ctx(r.Context()).Debug().Err(err).Int("status", herr.Status).Msg("Websocket subscription refused")
}
