package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/hexrace/server"
)

type Server struct {
	router     *way.Router
	GameServer *server.GameServer
}

func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalln(err)
	}
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := Server{
		GameServer: server.NewGameServer(cfg),
	}
	go s.GameServer.Loop(ctx)
	s.routes()

	httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: s.router}
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()
	log.WithField("port", cfg.Port).Info("listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalln(err)
	}
}
