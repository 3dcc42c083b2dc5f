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
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/craftline/outreach-cli/internal/jobs"
	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/internal/pipeline"
	"github.com/craftline/outreach-cli/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()

		zap.L().Info("serve: listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/pipeline/status", handlePipelineStatus(env))

		api.Post("/jobs", handleJobSubmit(env))
		api.Get("/jobs", handleJobsList(env))
		api.Get("/jobs/{id}", handleJobGet(env))

		api.Get("/leads", handleLeadsList(env))
		api.Post("/leads/approve", handleGateAction(env.Gate.Approve))
		api.Post("/leads/reject", handleGateAction(env.Gate.Reject))
		api.Post("/leads/delete", handleGateAction(env.Gate.Delete))
		api.Post("/leads/review", handleGateAction(env.Gate.ConfirmReview))

		api.Get("/settings", handleSettingsGet(env))
		api.Put("/settings/automation", handleAutomationPut(env))
	})

	return r
}

func handlePipelineStatus(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshots, err := env.Aggregator.Status(r.Context())
		if err != nil {
			if errors.Is(err, pipeline.ErrUnavailable) {
				writeError(w, http.StatusServiceUnavailable, "pipeline storage not provisioned")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stages": snapshots})
	}
}

func handleJobSubmit(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobs.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		receipt, err := env.Dispatcher.Submit(r.Context(), req)
		if err != nil {
			var vErr *jobs.ValidationError
			switch {
			case errors.As(err, &vErr):
				writeError(w, http.StatusBadRequest, vErr.Error())
			case errors.Is(err, jobs.ErrAutomationPaused):
				writeError(w, http.StatusConflict, "automation is paused")
			default:
				zap.L().Error("serve: job submit failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusAccepted, receipt)
	}
}

func handleJobsList(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := env.Store.ListJobs(r.Context(), store.JobFilter{
			Type:   model.JobType(q.Get("type")),
			Status: model.JobStatus(q.Get("status")),
			Limit:  50,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": list})
	}
}

func handleJobGet(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := env.Store.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func handleLeadsList(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		leads, err := env.Store.ListLeads(r.Context(), store.LeadFilter{
			SourceType:     model.SourceType(q.Get("source_type")),
			ApprovalStatus: model.ApprovalStatus(q.Get("approval")),
			SendStatus:     model.SendStatus(q.Get("send")),
			Limit:          100,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"leads": leads})
	}
}

func handleGateAction(action func(context.Context, []string) (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
			writeError(w, http.StatusBadRequest, "ids are required")
			return
		}

		n, err := action(r.Context(), req.IDs)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"affected": n})
	}
}

func handleSettingsGet(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := env.Store.GetSettings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func handleAutomationPut(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := env.Store.SetAutomation(r.Context(), req.Enabled); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
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
