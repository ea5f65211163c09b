package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/middleware/ratelimit"
	"billtracker/internal/middleware/security"
	"billtracker/internal/schedule"
	"billtracker/internal/services"
	appweb "billtracker/web"
)

// BillManager is the write side used by the bill and payday handlers.
type BillManager interface {
	ListBills(ctx context.Context) ([]core.Bill, error)
	GetBill(ctx context.Context, id int64) (core.Bill, error)
	CreateBill(ctx context.Context, b core.Bill) (core.Bill, error)
	UpdateBill(ctx context.Context, b core.Bill) (core.Bill, error)
	DeleteBill(ctx context.Context, id int64) error
	UndoDelete(ctx context.Context) (core.Bill, error)
	ListPayDays(ctx context.Context) ([]core.PayDay, error)
	SavePayDay(ctx context.Context, p core.PayDay) (core.PayDay, error)
	DeletePayDay(ctx context.Context, id int64) error
}

// ScheduleReader is the read side used by the summary and calendar handlers.
type ScheduleReader interface {
	Summary(ctx context.Context, today core.Date) (schedule.Summary, error)
	Calendar(ctx context.Context, ym core.YearMonth, today core.Date) (schedule.Month, error)
	BillsOn(ctx context.Context, date core.Date) ([]core.Bill, error)
	Window(ctx context.Context, from, to core.Date) (services.Window, error)
}

// Options wires a Server.
type Options struct {
	Addr      string
	Bills     BillManager
	Schedule  ScheduleReader
	Logger    *log.Logger
	RateLimit int
	// Ready backs /readyz; nil means always ready.
	Ready func(ctx context.Context) error
	// Today defaults to core.Today.
	Today func() core.Date
}

type Server struct {
	http.Server
	templates *template.Template
	bills     BillManager
	schedule  ScheduleReader
	ready     func(ctx context.Context) error
	today     func() core.Date
	logger    *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	rlConfig := ratelimit.DefaultConfig()
	if opts.RateLimit > 0 {
		rlConfig.RequestsPerMinute = opts.RateLimit
	}

	s := &Server{
		bills:    opts.Bills,
		schedule: opts.Schedule,
		ready:    opts.Ready,
		today:    opts.Today,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(rlConfig),
		detector: security.NewDetector(),
	}
	if s.today == nil {
		s.today = core.Today
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	mux.HandleFunc("GET /api/bills", s.handleListBills)
	mux.HandleFunc("POST /api/bills", s.handleCreateBill)
	mux.HandleFunc("POST /api/bills/undo", s.handleUndoDelete)
	mux.HandleFunc("GET /api/bills/{id}", s.handleGetBill)
	mux.HandleFunc("PUT /api/bills/{id}", s.handleUpdateBill)
	mux.HandleFunc("DELETE /api/bills/{id}", s.handleDeleteBill)

	mux.HandleFunc("GET /api/paydays", s.handleListPayDays)
	mux.HandleFunc("POST /api/paydays", s.handleSavePayDay)
	mux.HandleFunc("DELETE /api/paydays/{id}", s.handleDeletePayDay)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	mux.HandleFunc("GET /api/day", s.handleDay)
	mux.HandleFunc("GET /api/window", s.handleWindow)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.RequestLogging(s.detector.ExtractClientIP)(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		rl := s.limiter.GetMetrics()
		sec := s.detector.GetMetrics()
		s.logger.Info("HTTP server stopped",
			append(log.NewFields().WithOperation(log.OpShutdown).ToSlice(),
				"rate_limit_hits", rl.TotalHits,
				"rate_limit_clients", rl.ClientCount,
				"suspicious_requests", sec.SuspiciousRequests,
			)...)
	})
	return shutdownErr
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(r, http.StatusTooManyRequests, "rate limit exceeded").Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(r, http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}
