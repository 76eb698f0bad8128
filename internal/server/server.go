package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/chorewheel/internal/activity"
	"github.com/dukerupert/chorewheel/internal/archive"
	"github.com/dukerupert/chorewheel/internal/calendar"
	"github.com/dukerupert/chorewheel/internal/events"
	"github.com/dukerupert/chorewheel/internal/handler"
	"github.com/dukerupert/chorewheel/internal/household"
	"github.com/dukerupert/chorewheel/internal/ledger"
	"github.com/dukerupert/chorewheel/internal/metrics"
	"github.com/dukerupert/chorewheel/internal/middleware"
	"github.com/dukerupert/chorewheel/internal/reward"
	"github.com/dukerupert/chorewheel/internal/stats"
	"github.com/dukerupert/chorewheel/internal/store"
	"github.com/dukerupert/chorewheel/internal/task"
	ws "github.com/dukerupert/chorewheel/internal/websocket"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Options carries the optional collaborators of a Server.
type Options struct {
	SessionTTL time.Duration
	Archive    archive.S3Config
	// Publisher receives every domain event in addition to the websocket
	// hub, e.g. a NATS publisher. Nil means hub only.
	Publisher events.Publisher
	Metrics   *metrics.Metrics
}

type Server struct {
	hub           *ws.Hub
	metrics       *metrics.Metrics
	authH         *handler.AuthHandler
	familyMemberH *handler.FamilyMemberHandler
	taskH         *handler.TaskHandler
	calendarH     *handler.CalendarEventHandler
	rewardH       *handler.RewardHandler
	activityH     *handler.ActivityHandler
	statsH        *handler.StatsHandler
	archiveH      *handler.ArchiveHandler
	sessionStore  *store.SessionStore
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	hub := ws.NewHub(logger.With("component", "websocket"))

	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	memberStore := store.NewFamilyMemberStore(db)
	taskStore := store.NewTaskStore(db)
	subtaskStore := store.NewSubtaskStore(db)
	tokenStore := store.NewTokenStore(db)
	rewardStore := store.NewRewardStore(db)
	activityStore := store.NewActivityStore(db)
	eventStore := store.NewEventStore(db)

	publisher := events.Multi{hub}
	if opts.Publisher != nil {
		publisher = append(publisher, opts.Publisher)
	}
	recorder := activity.NewRecorder(activityStore, publisher, m, logger.With("component", "activity"))
	tokenLedger := ledger.New(tokenStore, logger.With("component", "ledger"))

	householdSvc := household.NewService(householdStore, sessionStore, memberStore, recorder, opts.SessionTTL, logger.With("component", "household"))
	taskSvc := task.NewService(taskStore, subtaskStore, memberStore, tokenLedger, recorder, m, logger.With("component", "task"))
	rewardSvc := reward.NewService(rewardStore, memberStore, recorder, m, logger.With("component", "reward"))
	calendarSvc := calendar.NewService(eventStore, memberStore, recorder, logger.With("component", "calendar"))
	statsSvc := stats.NewService(memberStore, tokenStore, taskStore)
	exporter := archive.NewExporter(opts.Archive, tokenStore, taskStore, activityStore, logger.With("component", "archive"))

	return &Server{
		hub:           hub,
		metrics:       m,
		authH:         handler.NewAuthHandler(householdSvc, logger.With("component", "auth")),
		familyMemberH: handler.NewFamilyMemberHandler(householdSvc, memberStore, tokenLedger, logger.With("component", "family_member")),
		taskH:         handler.NewTaskHandler(taskSvc, logger.With("component", "task")),
		calendarH:     handler.NewCalendarEventHandler(calendarSvc, logger.With("component", "calendar")),
		rewardH:       handler.NewRewardHandler(rewardSvc, logger.With("component", "reward")),
		activityH:     handler.NewActivityHandler(recorder, logger.With("component", "activity")),
		statsH:        handler.NewStatsHandler(statsSvc, logger.With("component", "stats")),
		archiveH:      handler.NewArchiveHandler(exporter, logger.With("component", "archive")),
		sessionStore:  sessionStore,
		rateLimiter:   middleware.NewRateLimiter(),
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/households", s.rateLimitedHandler(s.authH.CreateHousehold))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/logout", s.authH.Logout)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", s.metrics.Handler())

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
	return middleware.RequestID(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"ws_clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, authRateLimit, authRateWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/household", s.authH.Me)

	// Family members
	mux.HandleFunc("GET /api/members", s.familyMemberH.List)
	mux.HandleFunc("POST /api/members", s.familyMemberH.Create)
	mux.HandleFunc("GET /api/members/{id}/tokens", s.familyMemberH.Tokens)
	mux.HandleFunc("GET /api/members/{id}/stats", s.statsH.Member)

	// Tasks
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.HandleFunc("POST /api/tasks/{id}/reopen", s.taskH.Reopen)
	mux.HandleFunc("POST /api/tasks/{id}/rotate", s.taskH.Rotate)
	mux.HandleFunc("GET /api/tasks/{id}/rotation", s.taskH.Preview)
	mux.HandleFunc("GET /api/tasks/{id}/history", s.taskH.History)

	// Subtasks
	mux.HandleFunc("GET /api/tasks/{id}/subtasks", s.taskH.ListSubtasks)
	mux.HandleFunc("POST /api/tasks/{id}/subtasks", s.taskH.CreateSubtask)
	mux.HandleFunc("PUT /api/tasks/{id}/subtasks/order", s.taskH.ReorderSubtasks)
	mux.HandleFunc("PATCH /api/subtasks/{id}", s.taskH.UpdateSubtask)
	mux.HandleFunc("DELETE /api/subtasks/{id}", s.taskH.DeleteSubtask)
	mux.HandleFunc("POST /api/subtasks/{id}/complete", s.taskH.CompleteSubtask)

	// Calendar events
	mux.HandleFunc("GET /api/events", s.calendarH.List)
	mux.HandleFunc("POST /api/events", s.calendarH.Create)
	mux.HandleFunc("GET /api/events/{id}", s.calendarH.Get)
	mux.HandleFunc("PATCH /api/events/{id}", s.calendarH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.calendarH.Delete)

	// Rewards and claims
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("POST /api/rewards", s.rewardH.Create)
	mux.HandleFunc("PATCH /api/rewards/{id}", s.rewardH.Update)
	mux.HandleFunc("DELETE /api/rewards/{id}", s.rewardH.Delete)
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/claims", s.rewardH.ListClaims)
	mux.HandleFunc("PATCH /api/claims/{id}", s.rewardH.UpdateClaim)

	// Activity and stats
	mux.HandleFunc("GET /api/activity", s.activityH.List)
	mux.HandleFunc("GET /api/leaderboard", s.statsH.Leaderboard)
	mux.HandleFunc("GET /api/stats", s.statsH.Family)

	mux.HandleFunc("POST /api/archive", s.archiveH.Export)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
