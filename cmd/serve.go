package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/signal-research/internal/model"
	"github.com/sells-group/signal-research/internal/resilience"
	"github.com/sells-group/signal-research/pkg/exa"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for research queries and the Exa proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initApp(cfg, "serve")
		if err != nil {
			return err
		}

		timeout := time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(env.Research, env.Exa, env.Breakers, cfg.Server.CORSOrigins, timeout),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the API routes. exaClient may be nil when no Exa key is
// configured and breakers may be nil; timeout bounds each research request
// when positive.
func newRouter(r researcher, exaClient exa.Client, breakers *resilience.Breakers, origins []string, timeout time.Duration) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"status": "ok"}
		if breakers != nil {
			body["breakers"] = breakers.States()
		}
		writeJSON(w, http.StatusOK, body)
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Post("/api/research", researchHandler(r, timeout))
	router.Post("/api/exa", exaHandler(exaClient))

	return router
}

func researchHandler(r researcher, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Query any `json:"query"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, model.APIResponse[model.ClassifiedData]{Error: "Invalid query parameter"})
			return
		}
		query, ok := body.Query.(string)
		if !ok || query == "" {
			writeJSON(w, http.StatusBadRequest, model.APIResponse[model.ClassifiedData]{Error: "Invalid query parameter"})
			return
		}

		ctx := req.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		report, err := r.ProcessQuery(ctx, query)
		if err != nil {
			zap.L().Error("api: research query failed",
				zap.String("request_id", middleware.GetReqID(req.Context())),
				zap.String("query", query),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, model.APIResponse[model.ClassifiedData]{Error: "Failed to process research query"})
			return
		}

		writeJSON(w, http.StatusOK, model.APIResponse[model.ClassifiedData]{Success: true, Data: &report.Data})
	}
}

func exaHandler(client exa.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if client == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "EXA API key not found"})
			return
		}

		var body struct {
			Endpoint string          `json:"endpoint"`
			Data     json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
			return
		}

		raw, err := client.Proxy(req.Context(), body.Endpoint, body.Data)
		if err != nil {
			zap.L().Error("api: exa proxy failed",
				zap.String("request_id", middleware.GetReqID(req.Context())),
				zap.String("endpoint", body.Endpoint),
				zap.Error(err),
			)
			var se *resilience.StatusError
			if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
				writeJSON(w, se.StatusCode, map[string]string{"error": fmt.Sprintf("Exa API error: %d", se.StatusCode)})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}
