package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/config"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/enum"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/handler"
	mw "github.com/AresNative/mercado-liz-reporteria-sub001/internal/middleware"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/ws"
)

// Deps carries the already-constructed collaborators the router wires
// together. Chat is optional: without Firestore credentials the chat routes
// are simply not mounted.
type Deps struct {
	Config  *config.Config
	Log     *zap.Logger
	Hub     *ws.Hub
	Pedidos handler.PedidoServicer
	Runner  handler.QueryRunner
	Chat    handler.ChatStore
}

// New creates a Chi router with all application routes wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(mw.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/pedidos", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, d.Config.JWTSecret, d.Log, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(d.Config.JWTSecret))

		pedidoHandler := handler.NewPedidoHandler(d.Pedidos, d.Hub, d.Log)
		r.Route("/pedidos", pedidoHandler.RegisterRoutes)

		queryHandler := handler.NewQueryHandler(d.Runner, d.Log)
		r.Route("/query", queryHandler.RegisterRoutes)

		exportHandler := handler.NewExportHandler(d.Pedidos, d.Log)
		r.Route("/export", exportHandler.RegisterRoutes)

		if d.Chat != nil {
			chatHandler := handler.NewChatHandler(d.Chat, d.Log)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAdmin, enum.RoleCajero))
				r.Route("/chat", chatHandler.RegisterRoutes)
			})
		}
	})

	return r
}
