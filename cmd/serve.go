package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/batch"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server that queues pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		rs := newRunServer(env.Store, env.Pipeline, baseRequest(cfg.Pipeline.MaxCompanies), cfg.Server.QueueSize)
		done := make(chan struct{})
		go func() {
			rs.work(ctx)
			close(done)
		}()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           rs.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Int("queue_size", cfg.Server.QueueSize))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		<-done
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// queuedRun is a stored run waiting for the worker.
type queuedRun struct {
	id  string
	req model.RunRequest
}

// runServer accepts run requests over HTTP and drains them through a single
// worker, one run at a time.
type runServer struct {
	store    store.Store
	pipeline batch.Pipeline
	defaults model.RunRequest
	queue    chan queuedRun
}

func newRunServer(st store.Store, p batch.Pipeline, defaults model.RunRequest, queueSize int) *runServer {
	return &runServer{
		store:    st,
		pipeline: p,
		defaults: defaults,
		queue:    make(chan queuedRun, queueSize),
	}
}

func (s *runServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.handleCreateRun)
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
	})
	return r
}

// work runs queued requests sequentially until ctx is done.
func (s *runServer) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.queue:
			log := zap.L().With(zap.String("run_id", job.id))
			result, err := s.pipeline.Run(ctx, job.req, pipeline.WithRunID(job.id))
			warnUnknownCompanies(log, result)
			if err != nil {
				log.Error("queued run failed", zap.Error(err))
				continue
			}
			log.Info("queued run complete", zap.Int("emails", len(result.Emails)))
		}
	}
}

func (s *runServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *runServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req model.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req = mergeRequest(req, s.defaults)
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx := r.Context()
	run, err := s.store.CreateRun(ctx, req, "", 0)
	if err != nil {
		zap.L().Error("create run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create run")
		return
	}

	select {
	case s.queue <- queuedRun{id: run.ID, req: req}:
	default:
		if err := s.store.CompleteRun(ctx, run.ID, nil, "queue full"); err != nil {
			zap.L().Warn("fail rejected run", zap.String("run_id", run.ID), zap.Error(err))
		}
		writeError(w, http.StatusServiceUnavailable, "run queue is full")
		return
	}

	zap.L().Info("run queued", zap.String("run_id", run.ID), zap.String("target", req.TargetDescription))
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     run.ID,
		"status": string(model.RunStatusQueued),
	})
}

func (s *runServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *runServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status:  model.RunStatus(q.Get("status")),
		BatchID: q.Get("batch_id"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
