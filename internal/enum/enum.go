package enum

// ── Pedido state machine (free transitions, operator-driven) ──

const (
	PedidoStatusNuevo      = "NUEVO"
	PedidoStatusSurtiendo  = "SURTIENDO"
	PedidoStatusListo      = "LISTO"
	PedidoStatusEntregado  = "ENTREGADO"
	PedidoStatusCancelado  = "CANCELADO"
	PedidoStatusIncompleto = "INCOMPLETO"
)

// ── Urgency tiers (derived from the scheduled pickup time, never stored) ──

const (
	UrgencyAlta  = "ALTA"
	UrgencyMedia = "MEDIA"
	UrgencyBaja  = "BAJA"
)

// ── Realtime event types (server → client) ──

const (
	EventPedidoCreated  = "pedido.created"
	EventPedidoUpdated  = "pedido.updated"
	EventPedidoDeleted  = "pedido.deleted"
	EventPedidosRefresh = "pedidos.refresh"

	// Fine-grained item events, delivered only to the order's own group.
	EventItemSurtido      = "item.surtido"
	EventItemNoEncontrado = "item.no_encontrado"
)

// ── Hub commands (client → server) ──

const (
	CommandJoin   = "join"
	CommandLeave  = "leave"
	CommandNotify = "notify"
)

// GroupPedidos is the general list-level group every client joins on connect.
const GroupPedidos = "pedidos"

// ── Roles (tokens are issued by the main auth service) ──

const (
	RoleAdmin    = "ADMIN"
	RoleSurtidor = "SURTIDOR"
	RoleCajero   = "CAJERO"
)
