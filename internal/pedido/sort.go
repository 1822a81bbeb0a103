package pedido

import (
	"sort"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/enum"
)

// statusPriority orders active work before terminal states. Terminal statuses
// all collapse to 0 and fall back to newest-created-first.
var statusPriority = map[string]int{
	enum.PedidoStatusNuevo:     3,
	enum.PedidoStatusSurtiendo: 2,
	enum.PedidoStatusListo:     1,
}

var urgencyRank = map[string]int{
	enum.UrgencyAlta:  3,
	enum.UrgencyMedia: 2,
	enum.UrgencyBaja:  1,
}

// Sort applies the fixed list ordering: status priority descending, then
// urgency descending, then newest-created-first. Stable, so equal orders keep
// their arrival positions.
func Sort(pedidos []*Pedido) {
	sort.SliceStable(pedidos, func(i, j int) bool {
		a, b := pedidos[i], pedidos[j]
		if sp := statusPriority[a.Status] - statusPriority[b.Status]; sp != 0 {
			return sp > 0
		}
		if ur := urgencyRank[a.Urgencia] - urgencyRank[b.Urgencia]; ur != 0 {
			return ur > 0
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// Aggregates are the counters shown above the list. Recomputed after every
// load and after every remote update or deletion.
type Aggregates struct {
	PorStatus     map[string]int `json:"porStatus"`
	PorTipo       map[string]int `json:"porTipo"`
	Activos       int            `json:"activos"`
	UrgentesAltas int            `json:"urgentesAltas"`
}

// Aggregate recounts everything from the given page.
func Aggregate(pedidos []*Pedido) Aggregates {
	agg := Aggregates{
		PorStatus: make(map[string]int),
		PorTipo:   make(map[string]int),
	}
	for _, p := range pedidos {
		agg.PorStatus[p.Status]++
		if p.Tipo != "" {
			agg.PorTipo[p.Tipo]++
		}
		if p.Status == enum.PedidoStatusNuevo || p.Status == enum.PedidoStatusSurtiendo {
			agg.Activos++
			if p.Urgencia == enum.UrgencyAlta {
				agg.UrgentesAltas++
			}
		}
	}
	return agg
}
