package http

import (
	"errors"
	"net/http"

	"finboard/internal/guard"
	"finboard/internal/log"
	"finboard/internal/notify"
	"finboard/internal/resource"
	"finboard/internal/services"
	"finboard/internal/view"
)

const profileFetchKey = "profile.fetch"

// loadProfile fetches the caller's account. A failing fetch is notified once
// per page instance however often it is retried. ok is false when the
// response was already written.
func (s *Server) loadProfile(w http.ResponseWriter, r *http.Request, inst *view.Instance, data *pageData) bool {
	u, err := s.profile.Load(r.Context(), s.currentSession(r))
	if err == nil {
		inst.Once.Reset(profileFetchKey)
		data.Data = u
		return true
	}
	if resource.IsUnauthorized(err) {
		return !s.backendFailed(w, r, err, "")
	}
	data.Error = "Unable to load your profile."
	inst.Once.Fire(profileFetchKey, func() {
		s.logger.WarnContext(r.Context(), "Profile fetch failed",
			log.FieldProfile, inst.Profile,
			log.FieldView, inst.ID,
			log.FieldError, err)
		s.notes.Notify(inst.Profile, resource.UserMessage(err, "Unable to load your profile."), notify.Error)
	})
	return true
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	inst := s.views.Open(profileOf(r), view.PageProfile)
	data := pageData{Title: "Profile", Active: "profile", View: inst.ID}
	if !s.loadProfile(w, r, inst, &data) {
		return
	}
	s.renderPage(w, r, "profile.html", data)
}

// handleProfileCard reloads the account card, typically from its retry button.
func (s *Server) handleProfileCard(w http.ResponseWriter, r *http.Request) {
	inst, _ := s.instance(r, view.PageProfile)
	data := pageData{View: inst.ID}
	if !s.loadProfile(w, r, inst, &data) {
		return
	}
	s.respond(w, r, NewHTMXResponse(), "profile-card", data)
}

// handleProfileAction deactivates or deletes the caller's own account. Both
// end the session.
func (s *Server) handleProfileAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := profileOf(r)
	sess := s.currentSession(r)
	password := r.FormValue("password")

	var (
		msg string
		err error
	)
	switch r.PathValue("action") {
	case "deactivate":
		msg, err = s.profile.Deactivate(ctx, profile, sess, password)
	case "delete":
		msg, err = s.profile.DeleteAccount(ctx, profile, sess, password)
	default:
		NotFoundError("Unknown action").Write(w)
		return
	}

	switch {
	case errors.Is(err, services.ErrPasswordRequired):
		UnprocessableEntityError("Password is required").Write(w)
		return
	case err != nil:
		if !s.backendFailed(w, r, err, "Unable to update your account") {
			s.respond(w, r, NewHTMXResponse().Status(http.StatusBadGateway), "", nil)
		}
		return
	}

	s.logger.InfoContext(ctx, "Account closed",
		log.FieldOperation, r.PathValue("action"),
		log.FieldProfile, profile,
		log.FieldUserID, sess.UserID)
	s.notes.Notify(profile, msg, notify.Success)
	guard.Redirect(w, r, guard.LoginPath)
}
