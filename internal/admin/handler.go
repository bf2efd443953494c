// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"slices"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/gotitgames/catalog/internal/catalog"
	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/middleware"
	"github.com/gotitgames/catalog/internal/provider"
	"github.com/gotitgames/catalog/internal/syncjob"
)

type Jobs interface {
	Jobs() []string
	Has(name string) bool
	RunJob(ctx context.Context, name string, params provider.Params) (syncjob.Summary, error)
	RunAll(ctx context.Context, params provider.Params) []syncjob.Summary
	Status(ctx context.Context) (map[string]syncjob.Summary, error)
}

type Counter interface {
	Count(ctx context.Context) (int, error)
}

type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[catalog.Status]int, error)
}

type HolderCounter interface {
	CountHolders(ctx context.Context) (int, error)
}

type Handler struct {
	jobs       Jobs
	games      Counter
	entries    StatusCounter
	holders    HolderCounter
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	dbPing     func(ctx context.Context) error
	redisPing  func(ctx context.Context) error
	logger     *slog.Logger

	triggerLimit func(http.Handler) http.Handler

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
}

type HandlerConfig struct {
	Jobs       Jobs
	Games      Counter
	Entries    StatusCounter
	Holders    HolderCounter
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	DBPing     func(ctx context.Context) error
	RedisPing  func(ctx context.Context) error
	Logger     *slog.Logger

	// TriggerLimit wraps the job trigger routes when set.
	TriggerLimit func(http.Handler) http.Handler
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		jobs:         cfg.Jobs,
		triggerLimit: cfg.TriggerLimit,
		games:        cfg.Games,
		entries:      cfg.Entries,
		holders:      cfg.Holders,
		dbStats:      cfg.DBStats,
		redisStats:   cfg.RedisStats,
		dbPing:       cfg.DBPing,
		redisPing:    cfg.RedisPing,
		logger:       cfg.Logger,
		running:      make(map[string]bool),
	}
}

// RegisterAdminRoutes expects r to already be behind admin authorization.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.triggerLimit != nil {
			r.Use(h.triggerLimit)
		}
		r.Post("/sync/{job}", h.TriggerSync)
		r.Post("/expiry/scan", h.ScanExpiry)
	})
	r.Get("/sync/status", h.SyncStatus)

	r.Get("/stats", h.GetSystemStats)
	r.Get("/stats/db", h.GetDatabaseStats)
	r.Get("/stats/redis", h.GetRedisStats)
	r.Get("/stats/runtime", h.GetRuntimeStats)
}

// Wait blocks until every triggered job has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// members lists the jobs a trigger occupies. "all" occupies every job it
// runs, so a single provider cannot overlap a full run.
func (h *Handler) members(job string) []string {
	if job != syncjob.JobAll {
		return []string{job}
	}
	names := []string{syncjob.JobAll}
	for _, name := range h.jobs.Jobs() {
		if name != syncjob.JobSeed {
			names = append(names, name)
		}
	}
	return names
}

// claim marks every name running, or none of them when one already is. It
// returns the busy job on failure.
func (h *Handler) claim(names []string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, name := range names {
		if h.running[name] {
			return name, false
		}
	}
	for _, name := range names {
		h.running[name] = true
	}
	return "", true
}

func (h *Handler) release(names []string) {
	h.mu.Lock()
	for _, name := range names {
		delete(h.running, name)
	}
	h.mu.Unlock()
}

// TriggerSync starts a job detached from the request and answers 202. A
// job that is already running, alone or as part of "all", is rejected
// with 409.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	job := chi.URLParam(r, "job")
	if h.jobs == nil || !h.jobs.Has(job) {
		core.NotFound(w, "job")
		return
	}

	params := provider.Params{}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		params.Limit = limit
	}

	names := h.members(job)
	if busy, ok := h.claim(names); !ok {
		core.Conflict(w, "job "+busy+" is already running")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.release(names)

		if job == syncjob.JobAll {
			h.jobs.RunAll(ctx, params)
			return
		}
		if _, err := h.jobs.RunJob(ctx, job, params); err != nil {
			h.logger.Error("triggered job failed", "job", job, "error", err)
		}
	}()

	h.logger.Info("sync triggered",
		"job", job,
		"limit", params.Limit,
		"triggered_by", middleware.GetUserID(r.Context()),
	)
	core.Accepted(w, map[string]string{"job": job, "status": "started"})
}

func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.jobs.Status(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	h.mu.Lock()
	running := make([]string, 0, len(h.running))
	for job := range h.running {
		running = append(running, job)
	}
	h.mu.Unlock()
	slices.Sort(running)

	core.OK(w, SyncStatusResponse{Runs: status, Running: running})
}

// ScanExpiry runs the expiry job inline so its summary is recorded with
// the scheduled runs.
func (h *Handler) ScanExpiry(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil || !h.jobs.Has(syncjob.JobExpiry) {
		core.NotFound(w, "job")
		return
	}

	names := []string{syncjob.JobExpiry}
	if busy, ok := h.claim(names); !ok {
		core.Conflict(w, "job "+busy+" is already running")
		return
	}
	defer h.release(names)

	summary, err := h.jobs.RunJob(r.Context(), syncjob.JobExpiry, provider.Params{})
	if err != nil {
		core.JSONError(w, err)
		return
	}
	if summary.Status == syncjob.StatusError {
		core.InternalServerError(w, errors.New(summary.Message))
		return
	}

	h.logger.Info("expiry scan triggered",
		"updated", summary.Synced,
		"triggered_by", middleware.GetUserID(r.Context()),
	)
	core.OK(w, summary)
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	catalogStats, err := h.catalogStats(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	dbHealthy := h.dbPing == nil || h.dbPing(ctx) == nil
	redisHealthy := h.redisPing == nil || h.redisPing(ctx) == nil

	core.OK(w, SystemStatsResponse{
		Catalog: catalogStats,
		Database: DatabaseStatus{
			Healthy: dbHealthy,
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: redisHealthy,
			Stats:   h.getRedisStats(),
		},
		Runtime: runtimeStats(),
	})
}

func (h *Handler) catalogStats(ctx context.Context) (CatalogStats, error) {
	var stats CatalogStats
	var err error

	if h.games != nil {
		if stats.Games, err = h.games.Count(ctx); err != nil {
			return stats, err
		}
	}
	if h.holders != nil {
		if stats.Holders, err = h.holders.CountHolders(ctx); err != nil {
			return stats, err
		}
	}
	if h.entries != nil {
		byStatus, err := h.entries.CountByStatus(ctx)
		if err != nil {
			return stats, err
		}
		stats.EntriesByStatus = make(map[string]int, len(byStatus))
		for status, n := range byStatus {
			stats.EntriesByStatus[string(status)] = n
			stats.Entries += n
		}
	}
	return stats, nil
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, runtimeStats())
}

func runtimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}
