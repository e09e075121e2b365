package market

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/GoPolymarket/polyrelay/internal/clob"
	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	userChannel  = "user"
	maxFillCache = 512
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// Fill is a single trade fill delivered on the user channel.
type Fill struct {
	Market    string `json:"market"`
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	OrderID   string `json:"order_id"`
	Timestamp string `json:"timestamp"`
	ID        string `json:"fill_id"`
}

type wsEvent struct {
	EventType string `json:"event_type"`
	Market    string `json:"market"`
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	OrderID   string `json:"order_id"`
	Timestamp string `json:"timestamp"`
	ID        string `json:"id"`
}

// UserStream keeps an authenticated websocket subscription to the user
// channel and caches the most recent fills.
type UserStream struct {
	url   string
	creds model.CredentialTuple
	now   func() time.Time

	mu     sync.RWMutex
	fills  []Fill
	cancel context.CancelFunc
	done   chan struct{}
}

func NewUserStream(url string, creds model.CredentialTuple) *UserStream {
	return &UserStream{
		url:   url,
		creds: creds,
		now:   time.Now,
		fills: make([]Fill, 0, maxFillCache),
	}
}

// Start launches the connect/read loop. It reconnects with backoff until
// Stop is called.
func (s *UserStream) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		backoff := reconnectMin
		for {
			if err := s.connectAndRead(ctx); err != nil {
				logger.Warn("user stream disconnected", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
		}
	}()
}

// Stop tears down the stream and waits for the read loop to exit.
func (s *UserStream) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Fills returns a copy of the cached fills, newest last.
func (s *UserStream) Fills() []Fill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Fill, len(s.fills))
	copy(out, s.fills)
	return out
}

func (s *UserStream) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := s.authenticate(conn); err != nil {
		return err
	}

	sub := map[string]interface{}{
		"type":         "subscribe",
		"channel_name": userChannel,
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	logger.Info("user stream connected", "url", s.url)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.handleMessage(msg)
	}
}

func (s *UserStream) authenticate(conn *websocket.Conn) error {
	ts := s.now().Unix()
	sig, err := clob.Sign(s.creds.APISecret, "GET", "/ws/user", ts, nil)
	if err != nil {
		return err
	}

	return conn.WriteJSON(map[string]interface{}{
		"type":       "auth",
		"key":        s.creds.APIKey,
		"signature":  sig,
		"timestamp":  ts,
		"passphrase": s.creds.Passphrase,
	})
}

func (s *UserStream) handleMessage(raw []byte) {
	// Events arrive either as a single object or a batch.
	var events []wsEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		var single wsEvent
		if err := json.Unmarshal(raw, &single); err != nil {
			return
		}
		events = []wsEvent{single}
	}

	for _, ev := range events {
		if ev.EventType != "trade" && ev.EventType != "fills" {
			continue
		}
		s.appendFill(Fill{
			Market:    ev.Market,
			AssetID:   ev.AssetID,
			Price:     ev.Price,
			Size:      ev.Size,
			Side:      ev.Side,
			OrderID:   ev.OrderID,
			Timestamp: ev.Timestamp,
			ID:        ev.ID,
		})
	}
}

func (s *UserStream) appendFill(f Fill) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fills = append(s.fills, f)
	if len(s.fills) > maxFillCache {
		s.fills = s.fills[len(s.fills)-maxFillCache:]
	}
}
