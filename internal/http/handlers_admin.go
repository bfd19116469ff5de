package http

import (
	"errors"
	"net/http"
	"net/url"

	"finboard/internal/filter"
	"finboard/internal/log"
	"finboard/internal/notify"
	"finboard/internal/report"
	"finboard/internal/selection"
	"finboard/internal/services"
	"finboard/internal/view"
)

func (s *Server) categoryListing() listing {
	return listing{
		page:    view.PageCategories,
		name:    "categories",
		title:   "Transaction types",
		active:  "categories",
		tmpl:    "categories.html",
		partial: "category-list",
		base:    "/ui/admin/categories",
		fetch: func(r *http.Request, values url.Values) (any, []string, error) {
			page, err := s.categories.List(r.Context(), values)
			return page, services.Keys(page.Categories), err
		},
		bulk: func(r *http.Request, values url.Values) (selection.Resource, func() any) {
			var page services.CategoryPage
			return s.categories.Resource(values, &page), func() any { return page }
		},
		remove: s.categories.Delete,
	}
}

func (s *Server) userReportListing() listing {
	return listing{
		page:    view.PageUserReports,
		name:    "user reports",
		title:   "User reports",
		active:  "user-reports",
		tmpl:    "user-reports.html",
		partial: "user-report-list",
		base:    "/ui/admin/user-reports",
		fetch: func(r *http.Request, values url.Values) (any, []string, error) {
			page, err := s.userReports.List(r.Context(), values)
			return page, services.Keys(page.Reports), err
		},
		bulk: func(r *http.Request, values url.Values) (selection.Resource, func() any) {
			var page services.UserReportPage
			return s.userReports.Resource(values, &page), func() any { return page }
		},
		remove: s.userReports.Delete,
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.listPage(w, r, s.categoryListing())
}

func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	s.listPartial(w, r, s.categoryListing())
}

func (s *Server) handleCategoryToggle(w http.ResponseWriter, r *http.Request) {
	s.listToggle(w, r, s.categoryListing())
}

func (s *Server) handleCategoryBulkDelete(w http.ResponseWriter, r *http.Request) {
	s.listBulkDelete(w, r, s.categoryListing())
}

func (s *Server) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	s.listDelete(w, r, s.categoryListing())
}

func (s *Server) handleUserReports(w http.ResponseWriter, r *http.Request) {
	s.listPage(w, r, s.userReportListing())
}

func (s *Server) handleUserReportList(w http.ResponseWriter, r *http.Request) {
	s.listPartial(w, r, s.userReportListing())
}

func (s *Server) handleUserReportToggle(w http.ResponseWriter, r *http.Request) {
	s.listToggle(w, r, s.userReportListing())
}

func (s *Server) handleUserReportBulkDelete(w http.ResponseWriter, r *http.Request) {
	s.listBulkDelete(w, r, s.userReportListing())
}

func (s *Server) handleUserReportDelete(w http.ResponseWriter, r *http.Request) {
	s.listDelete(w, r, s.userReportListing())
}

// loadUsers lists users for the request's filters. ok is false when the
// response was already written.
func (s *Server) loadUsers(w http.ResponseWriter, r *http.Request, data *pageData) (services.UserPage, bool) {
	page, err := s.users.List(r.Context(), requestValues(r))
	data.Data = page
	switch {
	case err == nil:
	case errors.Is(err, filter.ErrInvalidInput):
		data.Error = filterMessage(err)
	default:
		if s.backendFailed(w, r, err, "Unable to load users") {
			return page, false
		}
	}
	return page, true
}

func (s *Server) userData(r *http.Request, inst *view.Instance) pageData {
	return pageData{
		Title:    "Users",
		Active:   "users",
		View:     inst.ID,
		Download: s.reports.Available(r.Context(), profileOf(r), report.KindUsers),
	}
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	inst := s.views.Open(profileOf(r), view.PageUsers)
	data := s.userData(r, inst)
	if _, ok := s.loadUsers(w, r, &data); !ok {
		return
	}
	s.renderPage(w, r, "users.html", data)
}

func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	inst, _ := s.instance(r, view.PageUsers)
	data := s.userData(r, inst)
	if _, ok := s.loadUsers(w, r, &data); !ok {
		return
	}
	status := http.StatusOK
	if data.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	s.respond(w, r, NewHTMXResponse().Status(status), "user-list", data)
}

func (s *Server) handleUserChart(w http.ResponseWriter, r *http.Request) {
	counts, err := s.users.Chart(r.Context())
	if err != nil {
		if s.backendFailed(w, r, err, "Unable to load the user chart") {
			return
		}
		s.respond(w, r, NewHTMXResponse().Status(http.StatusBadGateway), "", nil)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleUserAction runs one account action and re-renders the user list.
func (s *Server) handleUserAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := profileOf(r)
	id := r.PathValue("id")
	action := r.PathValue("action")

	var (
		msg  string
		kind = notify.Success
		err  error
	)
	switch action {
	case "deactivate":
		msg, err = s.users.Deactivate(ctx, id)
	case "activate":
		login := r.FormValue("login")
		if login == "" {
			login = id
		}
		var ok bool
		msg, ok, err = s.users.Activate(ctx, login)
		if !ok {
			kind = notify.Error
		}
	case "delete":
		msg, err = s.users.Delete(ctx, id)
	case "cancel-delete":
		err = s.users.CancelDeletion(ctx, id)
		msg = "Deletion cancelled"
	default:
		NotFoundError("Unknown action").Write(w)
		return
	}

	if err != nil {
		s.logger.WarnContext(ctx, "User action failed",
			log.FieldOperation, action,
			log.FieldUserID, id,
			log.FieldProfile, profile,
			log.FieldError, err)
		if s.backendFailed(w, r, err, "Unable to "+action+" the user") {
			return
		}
	} else {
		s.notes.Notify(profile, msg, kind)
	}

	inst, _ := s.instance(r, view.PageUsers)
	data := s.userData(r, inst)
	if _, ok := s.loadUsers(w, r, &data); !ok {
		return
	}
	s.respond(w, r, NewHTMXResponse(), "user-list", data)
}

func (s *Server) handleUserReport(w http.ResponseWriter, r *http.Request) {
	page, err := s.users.List(r.Context(), requestValues(r))
	switch {
	case errors.Is(err, filter.ErrInvalidInput):
		UnprocessableEntityError(filterMessage(err)).Write(w)
		return
	case err != nil:
		if !s.backendFailed(w, r, err, "Unable to load users") {
			s.respond(w, r, NewHTMXResponse().Status(http.StatusBadGateway), "", nil)
		}
		return
	}
	s.generate(w, r, s.users.ReportRequest(page), report.DefaultEncoding(), "/admin/users/report/download")
}

func (s *Server) handleUserReportDownload(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, report.KindUsers)
}

// generate triggers a report and swaps in an enabled download link.
func (s *Server) generate(w http.ResponseWriter, r *http.Request, req report.Request, enc report.Encoding, downloadPath string) {
	ctx := r.Context()
	profile := profileOf(r)

	out, err := s.reports.Trigger(ctx, profile, req, enc)
	if err != nil {
		if s.backendFailed(w, r, err, "Error generating report") {
			return
		}
		s.respond(w, r, NewHTMXResponse(), "report-actions", reportActions{Path: downloadPath, Kind: req.Kind, Available: s.reports.Available(ctx, profile, req.Kind)})
		return
	}
	s.appMetrics.reports.Add(1)
	s.notes.Notify(profile, "Report generated successfully", notify.Success)
	s.respond(w, r, NewHTMXResponse(), "report-actions", reportActions{Path: downloadPath, Kind: req.Kind, Available: out.OK})
}

type reportActions struct {
	Path      string
	Kind      report.Kind
	Available bool
}

// download redirects to the stored report URL. The file is never proxied.
func (s *Server) download(w http.ResponseWriter, r *http.Request, kind report.Kind) {
	link, err := s.reports.Download(r.Context(), profileOf(r), kind)
	if err != nil {
		if !errors.Is(err, report.ErrNoReport) {
			s.logger.WarnContext(r.Context(), "Report link lookup failed", log.FieldProfile, profileOf(r), log.FieldError, err)
		}
		s.notes.Notify(profileOf(r), "Generate a report first.", notify.Info)
		s.respond(w, r, NotFoundError("No report available"), "", nil)
		return
	}
	http.Redirect(w, r, link, http.StatusFound)
}
