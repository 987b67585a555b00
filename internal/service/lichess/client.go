package lichess

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ChessFlow/internal/domain/models"
	drepo "ChessFlow/internal/domain/repository"
	"ChessFlow/pkg/logger"
)

// Client implements a GameStream over a lichess-style WebSocket feed of
// finished games. The connection is replaced on Reconnect; each Read call
// serves exactly one connection, so the consumer re-reads after a
// reconnect to get a live channel pair.
type Client struct {
	token          string
	websocketURL   string
	channels       []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	bufferSize     int
	logger         *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// New creates a game stream client. Channels name the upstream feeds to
// follow, e.g. rated time controls.
func New(token, websocketURL string, channels []string, reconnectDelay, pingInterval time.Duration, bufferSize int, lgr *logger.Logger) drepo.GameStream {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Client{
		token:          token,
		websocketURL:   websocketURL,
		channels:       channels,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		bufferSize:     bufferSize,
		logger:         lgr,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.token != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("game stream connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.logger.Info("game stream connected", logger.String("url", c.websocketURL))
	return nil
}

func (c *Client) connection() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Subscribe subscribes to the configured channels.
func (c *Client) Subscribe(ctx context.Context) error {
	conn := c.connection()
	if conn == nil || !c.IsConnected() {
		return fmt.Errorf("game stream not connected")
	}
	for _, ch := range c.channels {
		msg := map[string]string{"type": "subscribe", "channel": ch}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", ch, err)
		}
		c.logger.Info("game stream subscribed", logger.String("channel", ch))
	}
	return nil
}

type wsGame struct {
	ID     string   `json:"id"`
	Moves  string   `json:"moves"`
	Status string   `json:"status"`
	Winner string   `json:"winner"`
	White  wsPlayer `json:"white"`
	Black  wsPlayer `json:"black"`
	Event  string   `json:"event"`
	Date   string   `json:"date"`
}

type wsPlayer struct {
	Name string `json:"name"`
}

type wsFrame struct {
	Type string `json:"type"`
	Game wsGame `json:"game"`
}

// Read streams finished game samples and errors until ctx is cancelled
// or the connection drops. Both goroutines are pinned to the connection
// current at call time, so a pump from before a reconnect can never touch
// the replacement connection.
func (c *Client) Read(ctx context.Context) (<-chan *models.GameSample, <-chan error) {
	games := make(chan *models.GameSample, c.bufferSize)
	errs := make(chan error, 1)
	conn := c.connection()

	go c.pingLoop(ctx, conn)
	go c.readPump(ctx, conn, games, errs)

	return games, errs
}

// pingLoop keeps one connection alive. A write failure means the
// connection is gone and the matching read pump will surface the error.
func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	if conn == nil {
		return
	}
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context, conn *websocket.Conn, games chan<- *models.GameSample, errs chan<- error) {
	defer close(games)
	defer close(errs)

	if conn == nil {
		errs <- fmt.Errorf("game stream conn nil")
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("game stream read: %w", err)
				return
			}

			var frame wsFrame
			if err := json.Unmarshal(b, &frame); err != nil {
				continue
			}
			if frame.Type != "gameFinish" {
				continue
			}

			sample, ok := toSample(frame.Game)
			if !ok {
				continue
			}
			select {
			case games <- sample:
			default:
				// drop on backpressure
			}
		}
	}
}

// toSample converts one finished-game frame. Aborted or unfinished games
// are dropped.
func toSample(g wsGame) (*models.GameSample, bool) {
	outcome, ok := outcomeFor(g)
	if !ok || g.Moves == "" {
		return nil, false
	}
	return &models.GameSample{
		GameID:  g.ID,
		Moves:   strings.Fields(g.Moves),
		Outcome: outcome,
		Metadata: models.GameMetadata{
			Event: g.Event,
			White: g.White.Name,
			Black: g.Black.Name,
			Date:  g.Date,
		},
	}, true
}

func outcomeFor(g wsGame) (models.Outcome, bool) {
	switch g.Winner {
	case "white":
		return models.WhiteWins, true
	case "black":
		return models.BlackWins, true
	}
	switch g.Status {
	case "draw", "stalemate":
		return models.Draw, true
	}
	return "", false
}

// Reconnect closes and dials again after the configured delay.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
