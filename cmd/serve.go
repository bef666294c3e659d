package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/internal/ocr"
	"github.com/labelguard/compliance-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the compliance HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env, cfg.Server),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newRouter builds the API routes. Split out for handler tests.
func newRouter(env *pipelineEnv, serverCfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: serverCfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/check", handleCheck(env))
		r.Get("/runs", handleListRuns(env))
		r.Get("/runs/{id}", handleGetRun(env))
	})

	return r
}

type checkRequest struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	SellerText string `json:"seller_text"`
}

// handleCheck runs a compliance check synchronously and returns the report.
// An unreadable image maps to 422 so callers can tell bad inputs from
// server faults.
func handleCheck(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.URL == "" && req.SellerText == "" {
			writeError(w, http.StatusBadRequest, "url or seller_text is required")
			return
		}

		listing := model.ListingInput{
			URL:        req.URL,
			Title:      req.Title,
			Category:   req.Category,
			SellerText: req.SellerText,
		}
		if req.URL != "" {
			fetched, err := env.Marketplace.Fetch(r.Context(), req.URL)
			if err != nil {
				zap.L().Error("api: listing fetch failed", zap.String("url", req.URL), zap.Error(err))
				writeError(w, http.StatusBadGateway, "listing fetch failed")
				return
			}
			if req.Category != "" {
				fetched.Category = req.Category
			}
			listing = fetched
		}

		report, err := env.Pipeline.Run(r.Context(), listing)
		if err != nil {
			if ocr.IsReadError(err) {
				writeError(w, http.StatusUnprocessableEntity, "unreadable listing image")
				return
			}
			zap.L().Error("api: compliance check failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "compliance check failed")
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}

func handleListRuns(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.RunFilter{
			Status:     model.RunStatus(q.Get("status")),
			ListingURL: q.Get("url"),
			Verdict:    model.Verdict(q.Get("verdict")),
			Limit:      50,
		}
		if limit := q.Get("limit"); limit != "" {
			if _, err := fmt.Sscanf(limit, "%d", &filter.Limit); err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
		}

		runs, err := env.Store.ListRuns(r.Context(), filter)
		if err != nil {
			zap.L().Error("api: list runs failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list runs failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	}
}

func handleGetRun(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := env.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
