package ussdserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tkmaina/ussd_stock_tracker/config"
	"github.com/tkmaina/ussd_stock_tracker/internal/transport/ussdhttp"
	customMW "github.com/tkmaina/ussd_stock_tracker/internal/transport/ussdhttp/middleware"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	srv *http.Server
}

func New(cfg *config.Config, ctrl *ussdhttp.Controller) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ussd", ctrl.HandleUSSD)

	handler := customMW.Recover(customMW.Logger(mux))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.USSD.Port),
		Handler:      handler,
		ReadTimeout:  cfg.USSD.ReadTimeout,
		WriteTimeout: cfg.USSD.WriteTimeout,
	}

	return &Server{srv: srv}
}

func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ussd server failed", slog.String("err", err.Error()))
			panic(err)
		}
	}()
	slog.Info("ussd server started", slog.String("addr", s.srv.Addr))
}

func (s *Server) Stop() {
	slog.Info("start stopping ussd server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		slog.Error("ussd server shutdown failed", slog.String("err", err.Error()))
		return
	}
	slog.Info("ussd server stopped")
}
