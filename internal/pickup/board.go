package pickup

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/enum"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/pedido"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/service"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/ws"
)

// Board wires the store, feed, gateway and detail lifecycle into one working
// pickup list. Feed events flow into the store; reconnects trigger a group
// rejoin plus one full refetch, which is the whole consistency model: missed
// deltas are never replayed.
type Board struct {
	Store   *Store
	Feed    *Feed
	Gateway *Gateway
	Detail  *Detail

	log *zap.Logger
}

// BoardConfig configures a board against one backend.
type BoardConfig struct {
	// BaseURL is the REST base, e.g. "http://localhost:8080".
	BaseURL string
	// FeedURL is the websocket endpoint including the token query param.
	FeedURL string
	// Token authenticates REST calls.
	Token string

	Log *zap.Logger
}

func NewBoard(cfg BoardConfig) *Board {
	b := &Board{log: cfg.Log}
	b.Store = NewStore(cfg.Log)

	b.Feed = NewFeed(cfg.FeedURL, FeedHandlers{
		OnConnect:       b.handleConnect,
		OnPedidoUpdated: b.Store.ApplyUpdate,
		OnPedidoDeleted: b.handleDeleted,
		OnRefresh:       b.handleRefresh,
		OnItemFlag:      b.handleItemFlag,
	}, cfg.Log)

	b.Gateway = NewGateway(cfg.BaseURL, cfg.Token, b.Store, b.Feed, cfg.Log)
	b.Detail = NewDetail(b.Feed, b.Store, cfg.Log)
	return b
}

// Run keeps the feed alive until the context is cancelled.
func (b *Board) Run(ctx context.Context) error {
	return b.Feed.Run(ctx)
}

func (b *Board) handleConnect() {
	b.Detail.HandleConnected()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.Gateway.Refetch(ctx); err != nil {
		b.log.Error("resync after connect", zap.Error(err))
	}
}

func (b *Board) handleDeleted(id int64) {
	b.Store.ApplyDelete(id)
	b.Detail.HandleDeleted(id)
}

func (b *Board) handleRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.Gateway.Refetch(ctx); err != nil {
		b.log.Error("refetch on feed request", zap.Error(err))
	}
}

func (b *Board) handleItemFlag(eventType string, payload *ws.ItemFlagPayload) {
	flag := pedido.FlagSurtido
	if eventType == enum.EventItemNoEncontrado {
		flag = pedido.FlagNoEncontrado
	}
	b.Store.PatchItemFlag(payload.PedidoID, payload.ItemID, flag, payload.Value)
}

// Load fetches the first page with the given filters.
func (b *Board) Load(ctx context.Context, params service.ListParams) error {
	return b.Gateway.LoadPage(ctx, params)
}
