package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"finboard/internal/core"
	"finboard/internal/guard"
	"finboard/internal/log"
	"finboard/internal/notify"
	"finboard/internal/resource"
	"finboard/internal/session"
)

// sseHeartbeat keeps idle event streams open through proxies.
var sseHeartbeat = 25 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, httpStatus := "ready", http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["session_store"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["session_store"] = "ok"
		}
	}

	checks["views"] = map[string]any{"instances": s.views.Size()}
	checks["rate_limiter"] = map[string]any{"active_clients": s.submit.ActiveClients()}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.traceMiddleware.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.submit.GetMetrics()
	m := s.appMetrics

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_microseconds", "gauge", "Smoothed response time", traceMetrics.AverageResponseTime)
	metric("logins_total", "counter", "Successful sign-ins", m.logins.Load())
	metric("bulk_deletes_total", "counter", "Bulk delete actions run", m.bulkDeletes.Load())
	metric("bulk_delete_failures_total", "counter", "Bulk delete actions that failed", m.bulkFailures.Load())
	metric("reports_generated_total", "counter", "Reports generated", m.reports.Load())
	metric("session_changes_total", "counter", "Session change events observed", m.sessionChanges.Load())
	metric("backend_unauthorized_total", "counter", "Backend 401 responses that cleared a session", m.unauthorized.Load())
	metric("view_instances", "gauge", "Live view instances", s.views.Size())
	metric("rate_limit_hits_total", "counter", "Throttled submits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Profiles with a submit bucket", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("rejected_requests_total", "counter", "Requests rejected by screening", securityMetrics.RejectedRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(m.uptime).Seconds()))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "home.html", pageData{Title: "finboard", Active: "home"})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.currentSession(r).Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.renderPage(w, r, "login.html", pageData{Title: "Login", Active: "login"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := profileOf(r)

	cred, err := loginForm(r)
	if err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}

	res, err := s.api.Login(ctx, cred)
	if err != nil {
		s.logger.WarnContext(ctx, "Login failed",
			log.FieldOperation, log.OpLogin,
			log.FieldProfile, profile,
			log.FieldError, err)
		s.notes.Notify(profile, "Error logging in. Please check your credentials.", notify.Error)
		s.respond(w, r, NewHTMXResponse().Status(http.StatusUnauthorized), "", nil)
		return
	}
	if res.User == nil || res.User.ID == "" {
		s.notes.Notify(profile, "Login failed. Invalid response from server.", notify.Error)
		s.respond(w, r, NewHTMXResponse().Status(http.StatusBadGateway), "", nil)
		return
	}

	sess := session.Session{UserID: res.User.ID, Role: core.RoleUser}
	if res.User.Role != nil {
		if res.User.Role.Name != "" {
			sess.Role = res.User.Role.Name
		}
		sess.RoleID = res.User.Role.ID
	}
	if err := s.sessions.Set(ctx, profile, sess); err != nil {
		s.logger.ErrorContext(ctx, "Failed to store session",
			log.FieldOperation, log.OpLogin,
			log.FieldProfile, profile,
			log.FieldError, err)
		msg := "Unable to sign in right now. Please try again."
		if errors.Is(err, session.ErrInvalidSession) {
			msg = "Your account has an unsupported role."
		}
		s.notes.Notify(profile, msg, notify.Error)
		s.respond(w, r, NewHTMXResponse().Status(http.StatusInternalServerError), "", nil)
		return
	}

	s.views.DropProfile(profile)
	s.appMetrics.logins.Add(1)
	s.logger.InfoContext(ctx, "Signed in", log.NewFields().
		WithOperation(log.OpLogin).
		WithSession(profile, sess.UserID, sess.Role).ToSlice()...)
	s.notes.Notify(profile, "Login successful", notify.Success)
	guard.Redirect(w, r, "/dashboard")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	profile := profileOf(r)
	if err := s.sessions.Clear(r.Context(), profile); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to clear session",
			log.FieldOperation, log.OpLogout,
			log.FieldProfile, profile,
			log.FieldError, err)
		s.notes.Notify(profile, "Unable to log out. Please try again.", notify.Error)
		s.respond(w, r, NewHTMXResponse().Status(http.StatusInternalServerError), "", nil)
		return
	}
	s.notes.Notify(profile, "You have been logged out.", notify.Info)
	guard.Redirect(w, r, guard.LoginPath)
}

// handleNav re-renders the navigation after a session-changed event.
func (s *Server) handleNav(w http.ResponseWriter, r *http.Request) {
	data := pageData{Session: s.currentSession(r), Active: r.URL.Query().Get("active")}
	s.respond(w, r, NewHTMXResponse(), "nav", data)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "dashboard.html", pageData{Title: "Dashboard", Active: "dashboard"})
}

// handleSessionEvents streams session changes and queued notifications of the
// caller's profile as server-sent events.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	profile := profileOf(r)
	if profile == "" {
		http.Error(w, "no profile", http.StatusBadRequest)
		return
	}

	changes := make(chan session.Change, 8)
	unsubscribe := s.sessions.OnChange(func(c session.Change) {
		if c.Profile != profile {
			return
		}
		select {
		case changes <- c:
		default:
		}
	})
	defer unsubscribe()
	pending, cancel := s.notes.Wait(profile)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "retry: 3000\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case c := <-changes:
			writeEvent(w, EventSessionChanged, map[string]any{
				"authenticated": c.New.Authenticated(),
				"role":          c.New.Role,
			})
		case <-pending:
			if ns := s.notes.Drain(profile); len(ns) > 0 {
				writeEvent(w, EventShowNotification, ns)
			}
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
		}
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEvent(w http.ResponseWriter, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}

// backendFailed reports a failed backend call. A 401 means the session is
// stale: it is cleared and the page navigates to login. It returns true when
// the response was already written.
func (s *Server) backendFailed(w http.ResponseWriter, r *http.Request, err error, fallback string) bool {
	profile := profileOf(r)
	f := resource.AsFailure(err)
	if f != nil && f.Unauthorized() {
		s.appMetrics.unauthorized.Add(1)
		if cerr := s.sessions.Clear(r.Context(), profile); cerr != nil {
			s.logger.ErrorContext(r.Context(), "Failed to clear stale session", log.FieldProfile, profile, log.FieldError, cerr)
		}
		s.notes.Notify(profile, "Your session has expired. Please log in again.", notify.Error)
		guard.Redirect(w, r, guard.LoginPath)
		return true
	}

	errorType := log.ErrorTypeServer
	if f != nil && f.Kind == resource.KindNetwork {
		errorType = log.ErrorTypeNetwork
	}
	s.logger.WarnContext(r.Context(), "Backend call failed", log.NewFields().
		WithSession(profile, "", "").
		WithErrorType(errorType).
		WithError(err).ToSlice()...)
	s.notes.Notify(profile, resource.UserMessage(err, fallback), notify.Error)
	return false
}
