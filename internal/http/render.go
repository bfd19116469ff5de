package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"finboard/internal/core"
	"finboard/internal/guard"
	"finboard/internal/log"
	"finboard/internal/notify"
	"finboard/internal/selection"
	"finboard/internal/session"
)

// pageData is what every template receives.
type pageData struct {
	Title   string
	Active  string
	Session session.Session
	// View is the view instance id the page's partial requests carry.
	View string
	// Base is the partial route prefix of a selectable list.
	Base string
	// Notes are shown on load by full pages.
	Notes []notify.Notification
	Sel   *selection.Set
	Busy  bool
	// Error is an inline validation message for the filter form.
	Error    string
	Download bool
	Data     any
}

var templateFuncs = template.FuncMap{
	"money": func(m core.Money) string { return m.String() },
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	"actionLabel": func(sel *selection.Set) string {
		if sel != nil && sel.Len() > 0 {
			return fmt.Sprintf("%s (%d)", selection.LabelDeleteSelected, sel.Len())
		}
		return selection.LabelDeleteAll
	},
	"selected": func(sel *selection.Set, id string) bool {
		return sel != nil && sel.Has(id)
	},
	"statusLabel": func(s string) string {
		s = strings.ReplaceAll(s, "_", " ")
		if s == "" {
			return "unknown"
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"eq2": func(a, b string) bool { return strings.EqualFold(a, b) },
	"dict": func(kv ...any) (map[string]any, error) {
		if len(kv)%2 != 0 {
			return nil, fmt.Errorf("dict: odd number of arguments")
		}
		m := make(map[string]any, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			k, ok := kv[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
			}
			m[k] = kv[i+1]
		}
		return m, nil
	},
}

func parseTemplates(fsys fs.FS) (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

func (s *Server) fragment(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// currentSession returns the guard's session, or reads it for unguarded routes.
func (s *Server) currentSession(r *http.Request) session.Session {
	if sess, ok := guard.SessionFrom(r.Context()); ok {
		return sess
	}
	profile, err := session.ProfileFrom(r.Context())
	if err != nil {
		return session.Session{}
	}
	sess, err := s.sessions.Get(r.Context(), profile)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Failed to read session", log.FieldProfile, profile, log.FieldError, err)
		return session.Session{}
	}
	return sess
}

func profileOf(r *http.Request) string {
	p, _ := session.ProfileFrom(r.Context())
	return p
}

// renderPage writes a full page. Pending notifications are handed to the page
// script instead of HX-Trigger.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	data.Session = s.currentSession(r)
	data.Notes = s.notes.Drain(profileOf(r))

	body, err := s.fragment(name, data)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldComponent, log.ComponentTemplate,
			"template", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// respond renders a partial into b and flushes the profile's notifications
// into the same response.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	if name != "" {
		body, err := s.fragment(name, data)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Template execution failed",
				log.FieldError, err,
				log.FieldComponent, log.ComponentTemplate,
				"template", name)
			b = InternalServerError("Unable to render the page")
		} else {
			b.HTML(body)
		}
	}
	b.TriggerNotifications(s.notes.Drain(profileOf(r))).Write(w)
}
