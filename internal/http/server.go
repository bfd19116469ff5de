package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"finboard/internal/core"
	"finboard/internal/guard"
	"finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/notify"
	"finboard/internal/report"
	"finboard/internal/resource"
	"finboard/internal/services"
	"finboard/internal/session"
	"finboard/internal/view"
	appweb "finboard/web"
)

// Backend is the REST surface the pages and the login form use.
type Backend interface {
	services.API
	Login(ctx context.Context, cred resource.Credentials) (resource.LoginResult, error)
}

var _ Backend = (*resource.Client)(nil)

// Deps are the collaborators a Server is built from.
type Deps struct {
	Backend  Backend
	Sessions *session.Store
	Profiles *session.Profiles
	Reports  *report.Trigger
	Views    *view.Registry
	Notes    *notify.Channel
	Policy   guard.MismatchPolicy
	// Submit throttles destructive submits per profile.
	Submit *ratelimit.Limiter
	Logger *log.Logger
	// Ready is checked by /readyz in addition to the templates. Optional.
	Ready func(ctx context.Context) error
	// Templates overrides the embedded templates, for tests.
	Templates fs.FS
}

type appMetrics struct {
	uptime         time.Time
	logins         atomic.Int64
	bulkDeletes    atomic.Int64
	bulkFailures   atomic.Int64
	reports        atomic.Int64
	sessionChanges atomic.Int64
	unauthorized   atomic.Int64
}

type Server struct {
	http.Server

	templates *template.Template
	api       Backend
	sessions  *session.Store
	reports   *report.Trigger
	views     *view.Registry
	notes     *notify.Channel
	guard     *guard.Guard
	submit    *ratelimit.Limiter
	ready     func(ctx context.Context) error

	transactions *services.TransactionService
	txReports    *services.TransactionReportService
	categories   *services.CategoryService
	subs         *services.SubCategoryService
	userReports  *services.UserReportService
	users        *services.UserService
	profile      *services.ProfileService

	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	logger           *log.Logger
	appMetrics       *appMetrics

	unsubscribe  func()
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, d Deps) (*Server, error) {
	logger := d.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	tfs := d.Templates
	if tfs == nil {
		tfs = appweb.TemplatesFS
	}
	tmpl, err := parseTemplates(tfs)
	if err != nil {
		return nil, err
	}

	notes := d.Notes
	if notes == nil {
		notes = notify.NewChannel(0)
	}
	submit := d.Submit
	if submit == nil {
		submit = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	s := &Server{
		templates:        tmpl,
		api:              d.Backend,
		sessions:         d.Sessions,
		reports:          d.Reports,
		views:            d.Views,
		notes:            notes,
		guard:            guard.New(d.Sessions, d.Policy, logger),
		submit:           submit,
		ready:            d.Ready,
		transactions:     services.NewTransactionService(d.Backend),
		txReports:        services.NewTransactionReportService(d.Backend),
		categories:       services.NewCategoryService(d.Backend),
		subs:             services.NewSubCategoryService(d.Backend),
		userReports:      services.NewUserReportService(d.Backend),
		users:            services.NewUserService(d.Backend),
		profile:          services.NewProfileService(d.Backend, d.Sessions),
		securityDetector: security.NewDetector(logger),
		logger:           logger,
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)
	s.unsubscribe = d.Sessions.OnChange(s.onSessionChange)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(d.Profiles),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(profiles *session.Profiles) http.Handler {
	app := http.NewServeMux()
	user := guard.Spec{RequiredRole: core.RoleUser}
	admin := guard.Spec{RequiredRole: core.RoleAdmin}
	signedIn := guard.Spec{}

	page := func(spec guard.Spec, h http.HandlerFunc) http.Handler {
		return security.NoStore(s.guard.Require(spec, h))
	}
	// destructive routes are throttled per profile before the guard runs
	submit := func(spec guard.Spec, h http.HandlerFunc) http.Handler {
		return s.throttle(page(spec, h))
	}

	app.HandleFunc("GET /{$}", s.handleHome)
	app.HandleFunc("GET /login", s.handleLoginPage)
	app.Handle("POST /login", s.throttle(http.HandlerFunc(s.handleLogin)))
	app.HandleFunc("POST /logout", s.handleLogout)
	app.HandleFunc("GET /ui/nav", s.handleNav)
	app.HandleFunc("GET /ui/session-events", s.handleSessionEvents)
	app.Handle("GET /dashboard", page(signedIn, s.handleDashboard))

	// user pages
	app.Handle("GET /transactions", page(user, s.handleTransactions))
	app.Handle("GET /ui/transactions", page(user, s.handleTransactionList))
	app.Handle("GET /ui/subcategories", page(user, s.handleSubCategories))
	app.Handle("GET /ui/transactions/chart", page(user, s.handleTransactionChart))
	app.Handle("POST /transactions/report", submit(user, s.handleTransactionReport))
	app.Handle("GET /transactions/report/download", page(user, s.handleTransactionReportDownload))

	app.Handle("GET /transaction-reports", page(user, s.handleTransactionReports))
	app.Handle("GET /ui/transaction-reports", page(user, s.handleTransactionReportList))
	app.Handle("POST /ui/transaction-reports/toggle/{id}", page(user, s.handleTransactionReportToggle))
	app.Handle("POST /ui/transaction-reports/bulk-delete", submit(user, s.handleTransactionReportBulkDelete))
	app.Handle("POST /ui/transaction-reports/delete/{id}", submit(user, s.handleTransactionReportDelete))

	app.Handle("GET /categories", page(user, s.handleSubCategoryPage))
	app.Handle("GET /ui/categories", page(user, s.handleSubCategoryList))
	app.Handle("POST /ui/categories/toggle/{id}", page(user, s.handleSubCategoryToggle))
	app.Handle("POST /ui/categories/bulk-delete", submit(user, s.handleSubCategoryBulkDelete))
	app.Handle("POST /ui/categories/delete/{id}", submit(user, s.handleSubCategoryDelete))

	// admin pages
	app.Handle("GET /admin/categories", page(admin, s.handleCategories))
	app.Handle("GET /ui/admin/categories", page(admin, s.handleCategoryList))
	app.Handle("POST /ui/admin/categories/toggle/{id}", page(admin, s.handleCategoryToggle))
	app.Handle("POST /ui/admin/categories/bulk-delete", submit(admin, s.handleCategoryBulkDelete))
	app.Handle("POST /ui/admin/categories/delete/{id}", submit(admin, s.handleCategoryDelete))

	app.Handle("GET /admin/subcategories", page(admin, s.handleSubCategoryPage))
	app.Handle("GET /ui/admin/subcategories", page(admin, s.handleSubCategoryList))
	app.Handle("POST /ui/admin/subcategories/toggle/{id}", page(admin, s.handleSubCategoryToggle))
	app.Handle("POST /ui/admin/subcategories/bulk-delete", submit(admin, s.handleSubCategoryBulkDelete))
	app.Handle("POST /ui/admin/subcategories/delete/{id}", submit(admin, s.handleSubCategoryDelete))

	app.Handle("GET /admin/user-reports", page(admin, s.handleUserReports))
	app.Handle("GET /ui/admin/user-reports", page(admin, s.handleUserReportList))
	app.Handle("POST /ui/admin/user-reports/toggle/{id}", page(admin, s.handleUserReportToggle))
	app.Handle("POST /ui/admin/user-reports/bulk-delete", submit(admin, s.handleUserReportBulkDelete))
	app.Handle("POST /ui/admin/user-reports/delete/{id}", submit(admin, s.handleUserReportDelete))

	app.Handle("GET /admin/users", page(admin, s.handleUsers))
	app.Handle("GET /ui/admin/users", page(admin, s.handleUserList))
	app.Handle("GET /ui/admin/users/chart", page(admin, s.handleUserChart))
	app.Handle("POST /ui/admin/users/{id}/{action}", submit(admin, s.handleUserAction))
	app.Handle("POST /admin/users/report", submit(admin, s.handleUserReport))
	app.Handle("GET /admin/users/report/download", page(admin, s.handleUserReportDownload))

	app.Handle("GET /profile", page(signedIn, s.handleProfile))
	app.Handle("GET /ui/profile", page(signedIn, s.handleProfileCard))
	app.Handle("POST /profile/{action}", submit(signedIn, s.handleProfileAction))

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", s.handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.HandleFunc("GET /metrics", s.handleMetrics)
	if sub, err := appweb.Static(); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		root.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}
	root.Handle("/", profiles.Middleware(app))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	return s.securityDetector.Middleware(
		s.traceMiddleware.Middleware(
			headers.Middleware(root)))
}

// throttle applies the per-profile submit limiter.
func (s *Server) throttle(next http.Handler) http.Handler {
	key := func(r *http.Request) string {
		p, _ := session.ProfileFrom(r.Context())
		return p
	}
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			TriggerErrorNotification("Too many requests. Please wait a moment.").
			Write(w)
	}
	return s.submit.Middleware(key, onLimit)(next)
}

// onSessionChange drops per-profile state when a session is cleared, locally
// or on another instance.
func (s *Server) onSessionChange(c session.Change) {
	s.appMetrics.sessionChanges.Add(1)
	if !c.Cleared() {
		return
	}
	dropped := s.views.DropProfile(c.Profile)
	if s.reports != nil {
		if err := s.reports.Forget(context.Background(), c.Profile); err != nil {
			s.logger.Warn("Failed to drop report links", log.FieldProfile, c.Profile, log.FieldError, err)
		}
	}
	s.logger.Debug("Session cleared", log.FieldProfile, c.Profile, "views_dropped", dropped)
}

// Shutdown stops accepting requests and detaches from the session store.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		err = s.Server.Shutdown(ctx)
	})
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
