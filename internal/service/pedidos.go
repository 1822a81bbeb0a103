package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/pedido"
)

// Errors returned by the pedido service.
var (
	ErrNotFound        = errors.New("pedido not found")
	ErrVersionConflict = errors.New("pedido was modified by someone else")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrFlagConflict    = errors.New("item cannot be surtido and no encontrado at once")
	ErrUnknownBulkOp   = errors.New("unknown bulk operation")
	ErrItemNotFound    = errors.New("item not on this pedido")
)

// Bulk item operations.
const (
	BulkSurtirTodo    = "surtir_todo"
	BulkLimpiarTodo   = "limpiar_surtido"
	BulkEncontrarTodo = "encontrar_todo"
)

// Row is a pedido row as stored: items still serialized, customer fields
// already joined in.
type Row struct {
	ID              int64
	ClienteID       int64
	SucursalID      int64
	UsuarioID       int64
	ClienteNombre   string
	ClienteTelefono string
	ClienteEmail    string
	Status          string
	Tipo            string
	ArticulosBlob   string
	ProgramadoPara  time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ListParams filter the pedido page.
type ListParams struct {
	Pagina     int
	PageSize   int
	Status     string // comma separated set, empty = all
	SucursalID int64  // 0 = all
}

// Store defines the DB methods the service needs. Satisfied by *PgStore;
// narrow interface for testability.
type Store interface {
	ListPedidos(ctx context.Context, params ListParams) ([]Row, int64, error)
	GetPedido(ctx context.Context, id int64) (Row, error)
	UpdateStatus(ctx context.Context, id int64, status string) (Row, error)
	// ReplaceItems rewrites the whole serialized array, guarded by the
	// optimistic concurrency token. Returns ErrVersionConflict when the row
	// moved on since expectedVersion, ErrNotFound when it is gone.
	ReplaceItems(ctx context.Context, id int64, blob string, expectedVersion time.Time) (Row, error)
}

// PedidoService owns pickup-list business logic: blob decoding, derived
// fields, the sort policy and the whole-array rewrite discipline.
type PedidoService struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewPedidoService(store Store, log *zap.Logger) *PedidoService {
	return &PedidoService{store: store, log: log, now: time.Now}
}

// ListResult is one sorted page plus its aggregates.
type ListResult struct {
	Pedidos      []*pedido.Pedido  `json:"pedidos"`
	Aggregates   pedido.Aggregates `json:"aggregates"`
	TotalRecords int64             `json:"totalRecords"`
	TotalPages   int               `json:"totalPages"`
}

// ListPage loads a filtered page, decodes every blob (malformed rows degrade
// to empty item lists), recomputes derived fields and applies the fixed sort.
func (s *PedidoService) ListPage(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Pagina <= 0 {
		params.Pagina = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 10
	}

	rows, total, err := s.store.ListPedidos(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list pedidos: %w", err)
	}

	now := s.now()
	pedidos := make([]*pedido.Pedido, len(rows))
	for i, row := range rows {
		pedidos[i] = s.rowToPedido(row, now)
	}
	pedido.Sort(pedidos)

	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	return &ListResult{
		Pedidos:      pedidos,
		Aggregates:   pedido.Aggregate(pedidos),
		TotalRecords: total,
		TotalPages:   totalPages,
	}, nil
}

// Get loads a single pedido with items decoded and derived fields fresh.
func (s *PedidoService) Get(ctx context.Context, id int64) (*pedido.Pedido, error) {
	row, err := s.store.GetPedido(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.rowToPedido(row, s.now()), nil
}

// SetStatus updates the status field. Transitions are unconstrained: any
// status may be set to any other.
func (s *PedidoService) SetStatus(ctx context.Context, id int64, status string) (*pedido.Pedido, error) {
	if !pedido.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	row, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	return s.rowToPedido(row, s.now()), nil
}

// ReplaceItems rewrites the whole line-item array. The version token guards
// against two clients racing on the same blob; a write that would leave an
// item both surtido and no-encontrado is rejected outright.
func (s *PedidoService) ReplaceItems(ctx context.Context, id int64, items []pedido.LineItem, expectedVersion time.Time) (*pedido.Pedido, error) {
	if !pedido.ValidItems(items) {
		return nil, ErrFlagConflict
	}
	blob, err := pedido.EncodeItems(items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	row, err := s.store.ReplaceItems(ctx, id, blob, expectedVersion)
	if err != nil {
		return nil, err
	}
	return s.rowToPedido(row, s.now()), nil
}

// SetItemFlag loads the pedido, patches the one flag and writes the whole
// array back under the loaded version.
func (s *PedidoService) SetItemFlag(ctx context.Context, id int64, itemID, flag string, value bool) (*pedido.Pedido, error) {
	row, err := s.store.GetPedido(ctx, id)
	if err != nil {
		return nil, err
	}
	p := s.rowToPedido(row, s.now())
	if !p.PatchItemFlag(itemID, flag, value) {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return s.ReplaceItems(ctx, id, p.Articulos, row.UpdatedAt)
}

// ApplyBulk runs one of the all-items operations under the loaded version.
func (s *PedidoService) ApplyBulk(ctx context.Context, id int64, op string) (*pedido.Pedido, error) {
	row, err := s.store.GetPedido(ctx, id)
	if err != nil {
		return nil, err
	}
	p := s.rowToPedido(row, s.now())

	items := make([]pedido.LineItem, len(p.Articulos))
	copy(items, p.Articulos)
	switch op {
	case BulkSurtirTodo:
		for i := range items {
			items[i].Surtido = true
			items[i].NoEncontrado = false
		}
	case BulkLimpiarTodo:
		for i := range items {
			items[i].Surtido = false
		}
	case BulkEncontrarTodo:
		for i := range items {
			items[i].NoEncontrado = false
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBulkOp, op)
	}

	return s.ReplaceItems(ctx, id, items, row.UpdatedAt)
}

func (s *PedidoService) rowToPedido(row Row, now time.Time) *pedido.Pedido {
	items, err := pedido.DecodeItems(row.ArticulosBlob)
	if err != nil {
		// Malformed blobs degrade to an empty list; the page still loads.
		s.log.Warn("malformed articulos blob",
			zap.Int64("pedido_id", row.ID),
			zap.Error(err),
		)
	}
	p := &pedido.Pedido{
		ID:              row.ID,
		ClienteID:       row.ClienteID,
		SucursalID:      row.SucursalID,
		UsuarioID:       row.UsuarioID,
		ClienteNombre:   row.ClienteNombre,
		ClienteTelefono: row.ClienteTelefono,
		ClienteEmail:    row.ClienteEmail,
		Status:          row.Status,
		Tipo:            row.Tipo,
		Articulos:       items,
		ProgramadoPara:  row.ProgramadoPara,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	p.Recompute(now)
	return p
}
