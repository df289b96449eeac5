package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tradecore/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	feedPingInterval = 30 * time.Second
	feedReadTimeout  = 60 * time.Second
	feedMaxRetries   = 10
	feedBaseDelay    = 1 * time.Second
	feedMaxDelay     = 60 * time.Second
)

// WSURL returns the websocket endpoint of a REST base URL.
func WSURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/ws"
}

type wsSubscribe struct {
	Method       string         `json:"method"`
	Subscription map[string]any `json:"subscription,omitempty"`
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type allMidsData struct {
	Mids map[string]decimal.Decimal `json:"mids"`
}

// MidHandler receives one mid price per coin update.
type MidHandler func(coin string, mid decimal.Decimal)

// MidFeed streams allMids over a websocket with automatic reconnection.
type MidFeed struct {
	url     string
	coins   map[string]bool // empty: every coin
	handler MidHandler
	logger  *slog.Logger

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewMidFeed creates a feed. coins filters updates by coin name.
func NewMidFeed(url string, coins []string, handler MidHandler, logger *slog.Logger) *MidFeed {
	if logger == nil {
		logger = slog.Default()
	}
	filter := make(map[string]bool, len(coins))
	for _, c := range coins {
		filter[CoinFromSymbol(c)] = true
	}
	return &MidFeed{
		url:     url,
		coins:   filter,
		handler: handler,
		logger:  logger.With(slog.String("component", "mid_feed")),
	}
}

// Connect starts the connection loop in the background.
func (f *MidFeed) Connect(ctx context.Context) error {
	ctx, f.cancel = context.WithCancel(ctx)

	f.wg.Add(1)
	go f.connectionLoop(ctx)

	return nil
}

func (f *MidFeed) connectionLoop(ctx context.Context) {
	defer f.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Mid feed panic recovered", slog.Any("panic", r))
		}
	}()

	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Mid feed connection loop stopped")
			return
		default:
		}

		err := f.connect(ctx)
		if err != nil {
			f.logger.Warn("Mid feed connection failed",
				slog.Any("error", err),
				slog.Int("retry", retryCount),
			)

			delay := infra.ExponentialDelay(feedBaseDelay, feedMaxDelay, retryCount)
			retryCount++
			if retryCount > feedMaxRetries {
				retryCount = 0
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retryCount = 0
		f.readLoop(ctx)
	}
}

func (f *MidFeed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	f.mu.Lock()
	f.conn = conn
	f.connected = true
	f.mu.Unlock()

	sub := wsSubscribe{Method: "subscribe", Subscription: map[string]any{"type": "allMids"}}
	if err := f.writeJSON(sub); err != nil {
		f.closeConnection()
		return fmt.Errorf("subscribe failed: %w", err)
	}

	go f.pingLoop(ctx, conn)

	f.logger.Info("Mid feed connected", slog.String("url", f.url), slog.Int("coins", len(f.coins)))
	return nil
}

func (f *MidFeed) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	f.mu.RLock()
	conn := f.conn
	f.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("connection is nil")
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// pingLoop exits once conn is replaced or closed.
func (f *MidFeed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(feedPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.RLock()
			current := f.conn
			f.mu.RUnlock()
			if current != conn {
				return
			}
			if err := f.writeJSON(wsSubscribe{Method: "ping"}); err != nil {
				f.logger.Warn("Mid feed ping failed", slog.Any("error", err))
			}
		}
	}
}

func (f *MidFeed) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		f.mu.RLock()
		conn := f.conn
		f.mu.RUnlock()

		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(feedReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Warn("Mid feed read error", slog.Any("error", err))
			}
			f.closeConnection()
			return
		}

		f.handleMessage(message)
	}
}

func (f *MidFeed) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if msg.Channel != "allMids" {
		return
	}

	var data allMidsData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		f.logger.Debug("Mid feed malformed update", slog.Any("error", err))
		return
	}

	for coin, mid := range data.Mids {
		// Spot pairs show up as "@123" or "PURR/USDC".
		if strings.HasPrefix(coin, "@") || strings.Contains(coin, "/") {
			continue
		}
		if len(f.coins) > 0 && !f.coins[coin] {
			continue
		}
		f.handler(coin, mid)
	}
}

func (f *MidFeed) closeConnection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connected = false
}

// Disconnect closes the connection and waits for the loop to exit.
func (f *MidFeed) Disconnect() {
	if f.cancel != nil {
		f.cancel()
	}
	f.closeConnection()
	f.wg.Wait()
	f.logger.Info("Mid feed disconnected")
}

// IsConnected returns connection status
func (f *MidFeed) IsConnected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}
