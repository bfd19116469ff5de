package http

import (
	"errors"
	"net/http"
	"net/url"

	"finboard/internal/filter"
	"finboard/internal/log"
	"finboard/internal/report"
	"finboard/internal/selection"
	"finboard/internal/services"
	"finboard/internal/view"
)

const transactionReportDownload = "/transactions/report/download"

// loadTransactions lists the signed-in user's transactions for the request's
// filters. ok is false when the response was already written.
func (s *Server) loadTransactions(w http.ResponseWriter, r *http.Request, data *pageData) (services.TransactionPage, bool) {
	page, err := s.transactions.List(r.Context(), s.currentSession(r), requestValues(r))
	data.Data = page
	switch {
	case err == nil:
	case errors.Is(err, filter.ErrInvalidInput):
		data.Error = filterMessage(err)
	default:
		if s.backendFailed(w, r, err, "Unable to load transactions") {
			return page, false
		}
	}
	return page, true
}

func (s *Server) transactionData(r *http.Request, inst *view.Instance) pageData {
	return pageData{
		Title:    "Transactions",
		Active:   "transactions",
		View:     inst.ID,
		Download: s.reports.Available(r.Context(), profileOf(r), report.KindTransactions),
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	inst := s.views.Open(profileOf(r), view.PageTransactions)
	data := s.transactionData(r, inst)
	if _, ok := s.loadTransactions(w, r, &data); !ok {
		return
	}
	s.renderPage(w, r, "transactions.html", data)
}

func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	inst, _ := s.instance(r, view.PageTransactions)
	ticket := inst.Tracker.Begin("list")
	data := s.transactionData(r, inst)
	if _, ok := s.loadTransactions(w, r, &data); !ok {
		return
	}
	if !ticket.Current() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	status := http.StatusOK
	if data.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	s.respond(w, r, NewHTMXResponse().Status(status), "transaction-list", data)
}

// handleSubCategories fills the subcategory select after a type change. Only
// the answer for the latest type is applied.
func (s *Server) handleSubCategories(w http.ResponseWriter, r *http.Request) {
	inst, _ := s.instance(r, view.PageTransactions)
	ticket := inst.Tracker.Begin("subcategories")
	typeID := r.URL.Query().Get("type")

	subs, err := s.transactions.SubCategories(r.Context(), s.currentSession(r), typeID)
	if !ticket.Current() {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Discarded stale subcategory response",
			log.FieldView, inst.ID, "type", typeID)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil && s.backendFailed(w, r, err, "Unable to load subcategories") {
		return
	}
	s.respond(w, r, NewHTMXResponse(), "subcategory-options", map[string]any{
		"SubCategories": subs,
		"Selected":      r.URL.Query().Get("subcategory"),
	})
}

func (s *Server) handleTransactionChart(w http.ResponseWriter, r *http.Request) {
	summary, err := s.transactions.Chart(r.Context(), s.currentSession(r), r.URL.Query().Get("year"))
	if err != nil {
		if !s.backendFailed(w, r, err, "Unable to load the chart") {
			s.respond(w, r, NewHTMXResponse().Status(http.StatusBadGateway), "", nil)
		}
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTransactionReport(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(r)
	page, err := s.transactions.List(r.Context(), sess, requestValues(r))
	switch {
	case errors.Is(err, filter.ErrInvalidInput):
		UnprocessableEntityError(filterMessage(err)).Write(w)
		return
	case err != nil:
		if !s.backendFailed(w, r, err, "Unable to load transactions") {
			s.respond(w, r, NewHTMXResponse().Status(http.StatusBadGateway), "", nil)
		}
		return
	}
	s.generate(w, r, s.transactions.ReportRequest(sess, page), services.TransactionReportEncoding, transactionReportDownload)
}

func (s *Server) handleTransactionReportDownload(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, report.KindTransactions)
}

func (s *Server) transactionReportListing(r *http.Request) listing {
	sess := s.currentSession(r)
	return listing{
		page:    view.PageTransactionReports,
		name:    "transaction reports",
		title:   "Reports",
		active:  "transaction-reports",
		tmpl:    "transaction-reports.html",
		partial: "transaction-report-list",
		base:    "/ui/transaction-reports",
		fetch: func(r *http.Request, values url.Values) (any, []string, error) {
			page, err := s.txReports.List(r.Context(), sess, values)
			return page, services.Keys(page.Reports), err
		},
		bulk: func(r *http.Request, values url.Values) (selection.Resource, func() any) {
			var page services.TransactionReportPage
			return s.txReports.Resource(sess, values, &page), func() any { return page }
		},
		remove: s.txReports.Delete,
	}
}

func (s *Server) handleTransactionReports(w http.ResponseWriter, r *http.Request) {
	s.listPage(w, r, s.transactionReportListing(r))
}

func (s *Server) handleTransactionReportList(w http.ResponseWriter, r *http.Request) {
	s.listPartial(w, r, s.transactionReportListing(r))
}

func (s *Server) handleTransactionReportToggle(w http.ResponseWriter, r *http.Request) {
	s.listToggle(w, r, s.transactionReportListing(r))
}

func (s *Server) handleTransactionReportBulkDelete(w http.ResponseWriter, r *http.Request) {
	s.listBulkDelete(w, r, s.transactionReportListing(r))
}

func (s *Server) handleTransactionReportDelete(w http.ResponseWriter, r *http.Request) {
	s.listDelete(w, r, s.transactionReportListing(r))
}
