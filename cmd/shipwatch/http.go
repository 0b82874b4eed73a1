package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/ShipWatch/internal/api/subscriptions_api"
	"github.com/BearBump/ShipWatch/internal/engine"
	"github.com/go-chi/chi/v5"
)

type httpOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	api    *subscriptions_api.API
	engine *engine.Engine
}

func runHTTPServer(ctx context.Context, opts httpOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8080"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.engine == nil {
			_, _ = w.Write([]byte(`{"error":"engine not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.engine.Stats())
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.engine == nil {
			_, _ = w.Write([]byte(`{"error":"engine not wired"}`))
			return
		}
		opts.engine.Trigger()
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	if opts.api != nil {
		opts.api.Routes(r)
	}

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
