package pickup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/enum"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/pedido"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/service"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/ws"
)

// ErrConflict is returned when the server rejects a whole-array rewrite
// because the pedido moved on since the client's last read.
var ErrConflict = errors.New("pedido was modified upstream")

// Notifier is the outbound feed surface the gateway relays mutations through.
// Satisfied by *Feed.
type Notifier interface {
	Notify(group string, event ws.Event) error
}

// Gateway issues authoritative mutations against the backend, applies them
// optimistically to the local store, and relays them to peers over the feed.
// A failed status change forces a corrective refetch back to server truth;
// there is no rollback bookkeeping.
type Gateway struct {
	base   string
	token  string
	client *http.Client
	store  *Store
	feed   Notifier
	log    *zap.Logger

	mu         sync.Mutex
	lastParams service.ListParams
}

func NewGateway(base, token string, store *Store, feed Notifier, log *zap.Logger) *Gateway {
	return &Gateway{
		base:   base,
		token:  token,
		client: &http.Client{Timeout: 15 * time.Second},
		store:  store,
		feed:   feed,
		log:    log,
	}
}

// LoadPage fetches one filtered page into the store. A response that lands
// after a newer load began is dropped by the store's generation check.
func (g *Gateway) LoadPage(ctx context.Context, params service.ListParams) error {
	g.mu.Lock()
	g.lastParams = params
	g.mu.Unlock()

	token := g.store.BeginLoad()

	q := url.Values{}
	if params.Pagina > 0 {
		q.Set("pagina", strconv.Itoa(params.Pagina))
	}
	if params.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(params.PageSize))
	}
	if params.Status != "" {
		q.Set("status", params.Status)
	}
	if params.SucursalID > 0 {
		q.Set("sucursal", strconv.FormatInt(params.SucursalID, 10))
	}

	var result service.ListResult
	if err := g.do(ctx, http.MethodGet, "/pedidos?"+q.Encode(), nil, &result); err != nil {
		g.store.FailLoad(token, err)
		return err
	}
	g.store.CompleteLoad(token, &result)
	return nil
}

// Refetch reloads the last requested page. Used as the corrective resync
// after mutation failures and after feed reconnects.
func (g *Gateway) Refetch(ctx context.Context) error {
	g.mu.Lock()
	params := g.lastParams
	g.mu.Unlock()
	return g.LoadPage(ctx, params)
}

// SetStatus changes the pedido's status. On success the local copy is patched
// immediately and peers are notified; on failure the list is refetched so the
// view snaps back to server truth.
func (g *Gateway) SetStatus(ctx context.Context, id int64, status string) error {
	body := map[string]string{"status": status}
	var updated pedido.Pedido
	if err := g.do(ctx, http.MethodPatch, fmt.Sprintf("/pedidos/%d/status", id), body, &updated); err != nil {
		g.log.Error("set status", zap.Int64("pedido_id", id), zap.Error(err))
		if rerr := g.Refetch(ctx); rerr != nil {
			g.log.Error("corrective refetch", zap.Error(rerr))
		}
		return err
	}

	g.store.ApplyUpdate(&updated)
	g.notifyUpdated(&updated)
	return nil
}

// SetItemFlag toggles one line-item flag. The server rewrites the whole
// array; locally the returned pedido replaces the stale copy. Failures are
// logged without a refetch, the next natural refresh or feed event corrects
// any drift.
func (g *Gateway) SetItemFlag(ctx context.Context, id int64, itemID, flag string, value bool) error {
	body := map[string]interface{}{"flag": flag, "value": value}
	var updated pedido.Pedido
	if err := g.do(ctx, http.MethodPatch, fmt.Sprintf("/pedidos/%d/items/%s", id, url.PathEscape(itemID)), body, &updated); err != nil {
		g.log.Error("set item flag", zap.Int64("pedido_id", id), zap.String("item", itemID), zap.Error(err))
		return err
	}

	g.store.ApplyUpdate(&updated)

	eventType := enum.EventItemSurtido
	if flag == pedido.FlagNoEncontrado {
		eventType = enum.EventItemNoEncontrado
	}
	event, err := ws.NewEvent(eventType, ws.ItemFlagPayload{PedidoID: id, ItemID: itemID, Value: value})
	if err == nil {
		if nerr := g.feed.Notify(ws.PedidoGroup(id), event); nerr != nil {
			g.log.Warn("notify item flag", zap.Error(nerr))
		}
	}
	return nil
}

// ApplyBulk runs one of the all-items operations.
func (g *Gateway) ApplyBulk(ctx context.Context, id int64, op string) error {
	body := map[string]string{"operacion": op}
	var updated pedido.Pedido
	if err := g.do(ctx, http.MethodPost, fmt.Sprintf("/pedidos/%d/items/bulk", id), body, &updated); err != nil {
		g.log.Error("bulk items", zap.Int64("pedido_id", id), zap.String("op", op), zap.Error(err))
		return err
	}

	g.store.ApplyUpdate(&updated)
	g.notifyUpdated(&updated)
	return nil
}

// ReplaceItems rewrites the whole line-item array under the version token
// from the client's last read. A conflict means another client won the race;
// the list is refetched and ErrConflict returned.
func (g *Gateway) ReplaceItems(ctx context.Context, id int64, items []pedido.LineItem, version time.Time) error {
	body := map[string]interface{}{"articulos": items, "updatedAt": version}
	var updated pedido.Pedido
	err := g.do(ctx, http.MethodPut, fmt.Sprintf("/pedidos/%d/items", id), body, &updated)
	if errors.Is(err, ErrConflict) {
		g.log.Warn("items rewrite conflict", zap.Int64("pedido_id", id))
		if rerr := g.Refetch(ctx); rerr != nil {
			g.log.Error("corrective refetch", zap.Error(rerr))
		}
		return err
	}
	if err != nil {
		g.log.Error("replace items", zap.Int64("pedido_id", id), zap.Error(err))
		return err
	}

	g.store.ApplyUpdate(&updated)
	g.notifyUpdated(&updated)
	return nil
}

func (g *Gateway) notifyUpdated(p *pedido.Pedido) {
	event, err := ws.NewEvent(enum.EventPedidoUpdated, p)
	if err != nil {
		return
	}
	if nerr := g.feed.Notify(enum.GroupPedidos, event); nerr != nil {
		g.log.Warn("notify update", zap.Int64("pedido_id", p.ID), zap.Error(nerr))
	}
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return ErrConflict
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
