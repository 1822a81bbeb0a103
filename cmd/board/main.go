// Command board runs a terminal pickup board: it keeps a live, sorted view of
// the pedido list reconciled against the realtime feed and prints it on every
// tick.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/pickup"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/service"
)

func main() {
	base := flag.String("base", "http://localhost:8081", "Backend base URL")
	feedURL := flag.String("feed", "", "Feed URL (default derived from -base)")
	token := flag.String("token", "", "JWT (or TOKEN env var)")
	status := flag.String("status", "", "Comma separated status filter")
	interval := flag.Duration("interval", 5*time.Second, "Redraw interval")
	flag.Parse()

	if *token == "" {
		*token = os.Getenv("TOKEN")
	}
	if *token == "" {
		fmt.Fprintln(os.Stderr, "a token is required: -token or TOKEN")
		os.Exit(1)
	}
	if *feedURL == "" {
		*feedURL = "ws" + (*base)[len("http"):] + "/ws/pedidos"
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	board := pickup.NewBoard(pickup.BoardConfig{
		BaseURL: *base,
		FeedURL: *feedURL + "?token=" + *token,
		Token:   *token,
		Log:     log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := board.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatal("feed", zap.Error(err))
		}
	}()

	if err := board.Load(ctx, service.ListParams{Status: *status, PageSize: 50}); err != nil {
		log.Warn("initial load", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			draw(board)
		case <-quit:
			return
		}
	}
}

func draw(board *pickup.Board) {
	pedidos := board.Store.Snapshot()
	agg := board.Store.Aggregates()

	fmt.Print("\033[2J\033[H")
	fmt.Printf("PEDIDOS  activos=%d  urgentes=%d  conectado=%v\n\n",
		agg.Activos, agg.UrgentesAltas, board.Feed.Connected())
	fmt.Printf("%-6s %-22s %-11s %-8s %-8s %s\n",
		"ID", "CLIENTE", "STATUS", "URGENCIA", "MIN", "TOTAL")

	for _, p := range pedidos {
		fmt.Printf("%-6d %-22s %-11s %-8s %-8d $%s\n",
			p.ID, p.ClienteNombre, p.Status, p.Urgencia, p.MinutosRestantes, p.Total.StringFixed(2))
	}
}
