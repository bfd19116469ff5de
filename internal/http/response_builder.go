// Package http serves the finboard pages and their HTMX partials.
//
// This file implements the Builder Pattern for constructing HTMX responses.
// Notifications queued for the profile ride the HX-Trigger header of the
// next response as a "show-notification" array.
package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"finboard/internal/notify"
)

const (
	EventShowNotification = "show-notification"
	EventSessionChanged   = "session-changed"
	EventSelection        = "selection-changed"
)

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
type HTMXResponseBuilder struct {
	triggers      map[string]any
	notifications []notify.Notification
	statusCode    int
	body          []byte
	headers       map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerNotification appends one entry to the show-notification array.
func (b *HTMXResponseBuilder) TriggerNotification(kind notify.Kind, message string, durationMs int) *HTMXResponseBuilder {
	b.notifications = append(b.notifications, notify.Notification{Kind: kind, Message: message, DurationMs: durationMs})
	return b
}

// TriggerNotifications appends drained notifications in order.
func (b *HTMXResponseBuilder) TriggerNotifications(ns []notify.Notification) *HTMXResponseBuilder {
	b.notifications = append(b.notifications, ns...)
	return b
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(notify.Error, message, notify.ErrorDurationMs)
}

// TriggerSelection tells the page how many rows are selected.
func (b *HTMXResponseBuilder) TriggerSelection(selected int) *HTMXResponseBuilder {
	return b.Trigger(EventSelection, map[string]int{"selected": selected})
}

// Redirect makes htmx navigate the whole page.
func (b *HTMXResponseBuilder) Redirect(target string) *HTMXResponseBuilder {
	return b.Header("HX-Redirect", target)
}

// Retarget swaps the body into selector instead of the requesting element's target.
func (b *HTMXResponseBuilder) Retarget(selector string) *HTMXResponseBuilder {
	return b.Header("HX-Retarget", selector)
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// HTML sets a rendered fragment as body.
func (b *HTMXResponseBuilder) HTML(content []byte) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = content
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	triggers := b.triggers
	if len(b.notifications) > 0 {
		triggers = make(map[string]any, len(b.triggers)+1)
		for k, v := range b.triggers {
			triggers[k] = v
		}
		triggers[EventShowNotification] = b.notifications
	}
	if len(triggers) > 0 {
		if triggerJSON, err := json.Marshal(triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a standard error response with HTML formatting.
// The message is HTML-escaped for safety.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError is the inline form validation response.
func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}
