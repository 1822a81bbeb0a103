package pedido

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/enum"
)

// LineItem is one article on a pickup list. The whole slice is persisted as a
// single JSON string on the pedido row and rewritten wholesale on every
// mutation; item IDs are barcodes, unique within one pedido only.
type LineItem struct {
	ID            string          `json:"id"`
	Nombre        string          `json:"nombre"`
	Categoria     string          `json:"categoria"`
	Unidad        string          `json:"unidad"`
	Precio        decimal.Decimal `json:"precio"`
	PrecioRegular decimal.Decimal `json:"precioRegular"`
	Cantidad      decimal.Decimal `json:"cantidad"`
	Factor        decimal.Decimal `json:"factor"`
	Surtido       bool            `json:"surtido"`
	NoEncontrado  bool            `json:"noEncontrado"`
}

// Pedido is a pickup order joined with its denormalized customer fields.
// Total, Urgencia and MinutosRestantes are derived and recomputed on every
// load; they are never trusted from storage or from a peer's payload.
type Pedido struct {
	ID         int64 `json:"id"`
	ClienteID  int64 `json:"clienteId"`
	SucursalID int64 `json:"sucursalId"`
	UsuarioID  int64 `json:"usuarioId"`

	ClienteNombre   string `json:"clienteNombre,omitempty"`
	ClienteTelefono string `json:"clienteTelefono,omitempty"`
	ClienteEmail    string `json:"clienteEmail,omitempty"`

	Status         string     `json:"status"`
	Tipo           string     `json:"tipo,omitempty"`
	Articulos      []LineItem `json:"articulos"`
	ProgramadoPara time.Time  `json:"programadoPara"`

	Total            decimal.Decimal `json:"total"`
	Urgencia         string          `json:"urgencia,omitempty"`
	MinutosRestantes int             `json:"minutosRestantes"`

	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt doubles as the optimistic concurrency token for whole-array
	// item rewrites.
	UpdatedAt time.Time `json:"updatedAt"`
}

// DecodeItems parses the serialized line-item blob. A malformed blob yields
// an empty slice and the parse error; callers log it and keep loading the
// rest of the page.
func DecodeItems(blob string) ([]LineItem, error) {
	if blob == "" {
		return []LineItem{}, nil
	}
	var items []LineItem
	if err := json.Unmarshal([]byte(blob), &items); err != nil {
		return []LineItem{}, err
	}
	if items == nil {
		items = []LineItem{}
	}
	return items, nil
}

// EncodeItems serializes the line-item slice back into the stored blob form.
func EncodeItems(items []LineItem) (string, error) {
	if items == nil {
		items = []LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Total sums precio * cantidad over all items.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Precio.Mul(it.Cantidad))
	}
	return total
}

// Urgency thresholds, in minutes until the scheduled pickup time.
const (
	urgentAltaMinutes  = 15
	urgentMediaMinutes = 60
)

// UrgencyFor derives the urgency tier. Only active orders (NUEVO, SURTIENDO)
// carry an urgency; everything else returns "".
func UrgencyFor(status string, programadoPara, now time.Time) string {
	if status != enum.PedidoStatusNuevo && status != enum.PedidoStatusSurtiendo {
		return ""
	}
	remaining := programadoPara.Sub(now)
	switch {
	case remaining <= urgentAltaMinutes*time.Minute:
		return enum.UrgencyAlta
	case remaining <= urgentMediaMinutes*time.Minute:
		return enum.UrgencyMedia
	default:
		return enum.UrgencyBaja
	}
}

// Recompute refreshes every derived field from the raw ones. Called after
// decoding a row and after applying any payload received from a peer, so the
// local view never depends on derived values computed elsewhere.
func (p *Pedido) Recompute(now time.Time) {
	p.Total = Total(p.Articulos)
	p.Urgencia = UrgencyFor(p.Status, p.ProgramadoPara, now)
	p.MinutosRestantes = int(p.ProgramadoPara.Sub(now).Minutes())
}

// PatchItemFlag sets one flag on one item, by item id. Returns false when the
// item is not on this pedido. Setting one flag clears the opposite one; an
// item is never both surtido and no-encontrado.
func (p *Pedido) PatchItemFlag(itemID, flag string, value bool) bool {
	for i := range p.Articulos {
		if p.Articulos[i].ID != itemID {
			continue
		}
		switch flag {
		case FlagSurtido:
			p.Articulos[i].Surtido = value
			if value {
				p.Articulos[i].NoEncontrado = false
			}
		case FlagNoEncontrado:
			p.Articulos[i].NoEncontrado = value
			if value {
				p.Articulos[i].Surtido = false
			}
		default:
			return false
		}
		return true
	}
	return false
}

// Item flag names as they travel over the wire.
const (
	FlagSurtido      = "surtido"
	FlagNoEncontrado = "noEncontrado"
)

// ValidItems reports whether no item carries both flags at once. Enforced at
// the write boundary since nothing else guards the serialized blob.
func ValidItems(items []LineItem) bool {
	for _, it := range items {
		if it.Surtido && it.NoEncontrado {
			return false
		}
	}
	return true
}

// IsValidStatus reports whether s is one of the pedido statuses. Transitions
// themselves are unconstrained: any status may be set to any other.
func IsValidStatus(s string) bool {
	switch s {
	case enum.PedidoStatusNuevo, enum.PedidoStatusSurtiendo, enum.PedidoStatusListo,
		enum.PedidoStatusEntregado, enum.PedidoStatusCancelado, enum.PedidoStatusIncompleto:
		return true
	}
	return false
}
