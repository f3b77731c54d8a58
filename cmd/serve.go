package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/discover"
	"github.com/sells-group/leadscout/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for lead access and scrape requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initScout(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		mux := newServeMux(ctx, env)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		go shutdownOnDone(ctx, srv)

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// shutdownOnDone waits for ctx cancellation, then drains in-flight requests
// on a fresh deadline. The trigger context is already dead at that point, so
// it cannot double as the drain window.
func shutdownOnDone(ctx context.Context, srv *http.Server) {
	<-ctx.Done()
	zap.L().Info("shutting down server")
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(drainCtx)
}

func newServeMux(ctx context.Context, env *scoutEnv) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /leads", func(w http.ResponseWriter, r *http.Request) {
		leads, err := env.Scout.ListAll(r.Context())
		if err != nil {
			zap.L().Error("list leads failed", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if leads == nil {
			leads = []model.Lead{}
		}
		writeJSON(w, http.StatusOK, leads)
	})

	mux.HandleFunc("GET /leads/count", func(w http.ResponseWriter, r *http.Request) {
		n, err := env.Scout.Count(r.Context())
		if err != nil {
			zap.L().Error("count leads failed", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"count": n})
	})

	mux.HandleFunc("POST /scrape", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Keyword  string `json:"keyword"`
			Limit    int    `json:"limit"`
			Category string `json:"category"`
			Unsafe   bool   `json:"unsafe"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Keyword == "" {
			http.Error(w, `{"error":"keyword is required"}`, http.StatusBadRequest)
			return
		}
		if req.Limit <= 0 {
			req.Limit = 10
		}
		tag := req.Category
		if tag == "" {
			tag = req.Keyword
		}

		dreq := model.DiscoveryRequest{
			Keyword:     req.Keyword,
			Limit:       req.Limit,
			CategoryTag: tag,
			SafeMode:    cfg.Scrape.SafeMode && !req.Unsafe,
			Mirror:      cfg.Site.Mirror,
		}

		// Scrapes outlive the request; they run against the server context.
		go func() {
			leads, acc := env.Scout.Run(ctx, dreq, discover.Events{})
			count := 0
			for range leads {
				count++
			}
			requests, floods, _, _, _ := acc.Snapshot()
			zap.L().Info("scrape complete",
				zap.String("keyword", dreq.Keyword),
				zap.Int("leads", count),
				zap.Int("requests", requests),
				zap.Int("flood_waits", floods),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "accepted",
			"keyword": req.Keyword,
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
