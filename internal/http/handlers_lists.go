package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"finboard/internal/filter"
	"finboard/internal/log"
	"finboard/internal/notify"
	"finboard/internal/selection"
	"finboard/internal/view"
)

// listing adapts one selectable list to the shared list handlers.
type listing struct {
	page   view.Page
	name   string
	title  string
	active string
	// tmpl is the full page, partial the list fragment inside it.
	tmpl    string
	partial string
	base    string
	// fetch returns the template data and the ids on screen.
	fetch func(r *http.Request, values url.Values) (any, []string, error)
	// bulk returns the delete resource and, after Run, the refetched data.
	bulk   func(r *http.Request, values url.Values) (selection.Resource, func() any)
	remove func(ctx context.Context, id string) error
}

func requestValues(r *http.Request) url.Values {
	if err := r.ParseForm(); err != nil {
		return r.URL.Query()
	}
	return r.Form
}

// instance resolves the view instance named by the request's "view" value.
func (s *Server) instance(r *http.Request, page view.Page) (*view.Instance, bool) {
	return s.views.Resolve(requestValues(r).Get("view"), profileOf(r), page)
}

func (s *Server) listData(inst *view.Instance, l listing) pageData {
	return pageData{
		Title:  l.title,
		Active: l.active,
		View:   inst.ID,
		Base:   l.base,
		Sel:    inst.Selection.Set(),
		Busy:   inst.Selection.Busy(),
	}
}

// load runs l.fetch and sorts its failure into data.Error or a notification.
// It returns false when the response was already written.
func (s *Server) load(w http.ResponseWriter, r *http.Request, l listing, data *pageData) ([]string, bool) {
	d, ids, err := l.fetch(r, requestValues(r))
	data.Data = d
	switch {
	case err == nil:
	case errors.Is(err, filter.ErrInvalidInput):
		data.Error = filterMessage(err)
	default:
		if s.backendFailed(w, r, err, "Unable to load "+l.name) {
			return nil, false
		}
	}
	return ids, true
}

func filterMessage(err error) string {
	msg := err.Error()
	prefix := filter.ErrInvalidInput.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		msg = msg[len(prefix):]
	}
	return "Invalid filter: " + msg
}

func (s *Server) listPage(w http.ResponseWriter, r *http.Request, l listing) {
	inst := s.views.Open(profileOf(r), l.page)
	data := s.listData(inst, l)
	ids, ok := s.load(w, r, l, &data)
	if !ok {
		return
	}
	inst.Selection.Set().Reconcile(ids)
	s.renderPage(w, r, l.tmpl, data)
}

// listPartial re-renders the list after a filter change. Selected rows that
// fell out of the list are dropped from the selection.
func (s *Server) listPartial(w http.ResponseWriter, r *http.Request, l listing) {
	inst, _ := s.instance(r, l.page)
	data := s.listData(inst, l)
	ids, ok := s.load(w, r, l, &data)
	if !ok {
		return
	}
	inst.Selection.Set().Reconcile(ids)
	data.Sel = inst.Selection.Set()
	status := http.StatusOK
	if data.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	s.respond(w, r, NewHTMXResponse().Status(status), l.partial, data)
}

func (s *Server) listToggle(w http.ResponseWriter, r *http.Request, l listing) {
	inst, fresh := s.instance(r, l.page)
	if fresh {
		// The page outlived its state; start over with a full list.
		data := s.listData(inst, l)
		if _, ok := s.load(w, r, l, &data); !ok {
			return
		}
		s.respond(w, r, NewHTMXResponse().Retarget("#list"), l.partial, data)
		return
	}
	set := inst.Selection.Set()
	set.Toggle(r.PathValue("id"))
	s.respond(w, r, NewHTMXResponse().TriggerSelection(set.Len()), "bulk-action", s.listData(inst, l))
}

func (s *Server) listBulkDelete(w http.ResponseWriter, r *http.Request, l listing) {
	ctx := r.Context()
	profile := profileOf(r)
	inst, _ := s.instance(r, l.page)
	values := requestValues(r)

	data := s.listData(inst, l)
	visible, ok := s.load(w, r, l, &data)
	if !ok {
		return
	}
	if data.Error != "" {
		// Nothing is deleted while the filters on screen are invalid.
		s.respond(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), l.partial, data)
		return
	}

	res, refetched := l.bulk(r, values)
	out, err := inst.Selection.Run(ctx, res, visible)
	s.appMetrics.bulkDeletes.Add(1)
	log.NewStructuredLogger(log.FromContext(ctx)).LogBulkDelete(ctx, l.name, len(out.Action.Targets), out.Action.All, err)

	switch {
	case errors.Is(err, selection.ErrBusy):
		s.notes.Notify(profile, "A delete is already running.", notify.Info)
		s.respond(w, r, NewHTMXResponse().Status(http.StatusConflict), "", nil)
		return
	case errors.Is(err, selection.ErrNothingToDelete):
		s.notes.Notify(profile, "Nothing to delete.", notify.Info)
	case err != nil:
		s.appMetrics.bulkFailures.Add(1)
		if s.backendFailed(w, r, err, "Failed to delete "+l.name) {
			return
		}
	default:
		s.notes.Notify(profile, deletedMessage(l.name, out.Action), notify.Success)
	}

	switch {
	case errors.Is(err, selection.ErrNothingToDelete):
	case errors.Is(out.RefetchErr, filter.ErrInvalidInput):
		data.Error = filterMessage(out.RefetchErr)
	case out.RefetchErr != nil:
		if s.backendFailed(w, r, out.RefetchErr, "Unable to reload "+l.name) {
			return
		}
	default:
		data.Data = refetched()
	}
	data.Sel = inst.Selection.Set()
	data.Busy = inst.Selection.Busy()
	s.respond(w, r, NewHTMXResponse().TriggerSelection(data.Sel.Len()), l.partial, data)
}

func deletedMessage(name string, a selection.Action) string {
	if a.All {
		return "All " + name + " deleted successfully"
	}
	if len(a.Targets) == 1 {
		return "Deleted 1 item from " + name
	}
	return "Deleted " + strconv.Itoa(len(a.Targets)) + " items from " + name
}

func (s *Server) listDelete(w http.ResponseWriter, r *http.Request, l listing) {
	ctx := r.Context()
	profile := profileOf(r)
	id := r.PathValue("id")
	inst, _ := s.instance(r, l.page)

	if err := l.remove(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "Delete failed",
			log.FieldOperation, log.OpDelete,
			log.FieldResource, l.name,
			log.FieldProfile, profile,
			log.FieldError, err)
		if s.backendFailed(w, r, err, "Failed to delete item") {
			return
		}
	} else {
		inst.Selection.Set().Reconcile(withoutID(inst.Selection.Set().Selected(), id))
		s.notes.Notify(profile, "Deleted successfully", notify.Success)
	}

	data := s.listData(inst, l)
	ids, ok := s.load(w, r, l, &data)
	if !ok {
		return
	}
	inst.Selection.Set().Reconcile(ids)
	s.respond(w, r, NewHTMXResponse().TriggerSelection(inst.Selection.Set().Len()), l.partial, data)
}

func withoutID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
