package hyperliquid

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Trong-Tra/Clione/internal/domain"
	"github.com/Trong-Tra/Clione/internal/infra"
)

// MainnetWSURL is the production websocket endpoint.
const MainnetWSURL = "wss://api.hyperliquid.xyz/ws"

// bestStaleness bounds how old a cached top of book may be before Best
// refuses to serve it.
const bestStaleness = 10 * time.Second

// TopOfBookWorker keeps a live best bid/ask for one coin over the venue's
// bbo channel. It plugs into infra.StreamWorker for connection lifecycle.
type TopOfBookWorker struct {
	url    string
	coin   string
	worker *infra.StreamWorker

	mu        sync.RWMutex
	best      domain.BestPrices
	updatedAt time.Time
}

// NewTopOfBookWorker creates a worker for one coin. Call Start to connect.
func NewTopOfBookWorker(wsURL, coin string) *TopOfBookWorker {
	w := &TopOfBookWorker{url: wsURL, coin: coin}
	w.worker = infra.NewStreamWorker(w)
	return w
}

// Start begins the connection loop.
func (w *TopOfBookWorker) Start(ctx context.Context) {
	w.worker.Start(ctx)
}

// Stop terminates the worker.
func (w *TopOfBookWorker) Stop() {
	w.worker.Stop()
}

// Best returns the cached top of book. ok is false until the first update
// arrives and whenever the cache has gone stale.
func (w *TopOfBookWorker) Best() (domain.BestPrices, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.updatedAt.IsZero() || time.Since(w.updatedAt) > bestStaleness {
		return domain.BestPrices{}, false
	}
	return w.best, true
}

// GetURL implements infra.StreamHandler.
func (w *TopOfBookWorker) GetURL() string { return w.url }

// ID implements infra.StreamHandler.
func (w *TopOfBookWorker) ID() string { return "HL_BBO_" + w.coin }

type wsSubscribeRequest struct {
	Method       string         `json:"method"`
	Subscription wsSubscription `json:"subscription"`
}

type wsSubscription struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

// OnConnect subscribes to the coin's bbo channel.
func (w *TopOfBookWorker) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	req := wsSubscribeRequest{
		Method:       "subscribe",
		Subscription: wsSubscription{Type: "bbo", Coin: w.coin},
	}
	msg, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}

type wsEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type bboData struct {
	Coin string     `json:"coin"`
	Time int64      `json:"time"`
	BBO  [2]wsLevel `json:"bbo"`
}

// OnMessage folds a bbo update into the cache. Other channels and coins are
// ignored.
func (w *TopOfBookWorker) OnMessage(ctx context.Context, msg []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return
	}
	if env.Channel != "bbo" {
		return
	}

	var data bboData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		slog.Debug("bad bbo payload", slog.Any("error", err))
		return
	}
	if data.Coin != w.coin {
		return
	}

	bid, err := data.BBO[0].toDomain()
	if err != nil {
		return
	}
	ask, err := data.BBO[1].toDomain()
	if err != nil {
		return
	}

	w.mu.Lock()
	w.best = domain.BestPrices{Bid: bid.Price, Ask: ask.Price}
	w.updatedAt = time.UnixMilli(data.Time)
	if w.updatedAt.After(time.Now()) || time.Since(w.updatedAt) > bestStaleness {
		// Venue clocks drift; trust arrival time over the payload stamp.
		w.updatedAt = time.Now()
	}
	w.mu.Unlock()
}

// OnPing keeps the connection alive with the venue's ping message.
func (w *TopOfBookWorker) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteMessage(websocket.TextMessage, []byte(`{"method":"ping"}`))
}
