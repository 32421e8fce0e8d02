package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/broadband-cli/internal/cache"
	"github.com/sells-group/broadband-cli/internal/model"
	"github.com/sells-group/broadband-cli/internal/summary"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cached data over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		c, err := cache.Open(cfg.Broadband.DataDir, cfg.Broadband.DataVersion)
		if err != nil {
			return eris.Wrapf(err, "serve: no cache for %s", cfg.Broadband.DataVersion)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildMux(c),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return runServer(ctx, srv)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})

	return g.Wait()
}

// buildMux routes read-only requests to files in c.
func buildMux(c *cache.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Get("/districts", func(w http.ResponseWriter, _ *http.Request) {
		serveCached(w, c, cache.DistrictsKey())
	})

	r.Get("/districts/{district}/providers", func(w http.ResponseWriter, r *http.Request) {
		district, ok := districtParam(w, r)
		if ok {
			serveCached(w, c, cache.ProvidersKey(district))
		}
	})

	r.Get("/districts/{district}/ranking", func(w http.ResponseWriter, r *http.Request) {
		district, ok := districtParam(w, r)
		if ok {
			serveCached(w, c, cache.RankingKey(district))
		}
	})

	r.Get("/summary", func(w http.ResponseWriter, _ *http.Request) {
		rows, err := summary.NewCompiler(c).Compile()
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := summary.WriteCSV(w, rows); err != nil {
			zap.L().Warn("write summary response failed", zap.Error(err))
		}
	})

	return r
}

// districtParam returns the {district} segment, rejecting names that could
// escape the cache directory.
func districtParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	district := chi.URLParam(r, "district")
	if district == "" || strings.ContainsAny(district, `/\`) || strings.Contains(district, "..") {
		writeJSONError(w, http.StatusBadRequest, "invalid district")
		return "", false
	}
	return district, true
}

func serveCached(w http.ResponseWriter, c *cache.Store, key cache.Key) {
	raw, err := c.ReadRaw(key)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// writeError maps absent data to 404 and everything else to 500.
func writeError(w http.ResponseWriter, err error) {
	if eris.Is(err, cache.ErrNotFound) || eris.Is(err, model.ErrMissingData) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	zap.L().Error("serve request failed", zap.Error(err))
	writeJSONError(w, http.StatusInternalServerError, "internal error")
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
