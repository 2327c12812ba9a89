package httpapi

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"notify-pipeline/internal/models"
	"notify-pipeline/internal/routing"
)

// CreateEventRequest is the intake payload.
type CreateEventRequest struct {
	EventType           string         `json:"event_type"`
	Assignee            string         `json:"assignee"`
	Data                map[string]any `json:"data"`
	AssigneePreferences map[string]any `json:"assignee_preferences"`
}

// CreateEventResponse carries the assigned id and the pipeline decision.
type CreateEventResponse struct {
	EventID      string         `json:"event_id"`
	Notification models.Outcome `json:"notification"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) createEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON", Details: []string{err.Error()}})
		return
	}
	if details := a.validate(req); len(details) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: details})
		return
	}

	ev := models.Event{
		EventID:             a.newEventID(),
		EventType:           req.EventType,
		Assignee:            strings.TrimSpace(req.Assignee),
		Data:                req.Data,
		AssigneePreferences: req.AssigneePreferences,
		ReceivedAt:          a.now(),
	}

	if err := a.Store.SaveEvent(r.Context(), ev); err != nil {
		a.Logger.Error("Failed to store event", zap.String("event_id", ev.EventID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store event"})
		return
	}

	out, err := a.Pipeline.Process(r.Context(), ev)
	if err != nil {
		a.Logger.Error("Pipeline failed", zap.String("event_id", ev.EventID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to process event"})
		return
	}

	writeJSON(w, http.StatusCreated, CreateEventResponse{EventID: ev.EventID, Notification: out})
}

func (a *App) validate(req CreateEventRequest) []string {
	var details []string
	switch {
	case req.EventType == "":
		details = append(details, "event_type is required")
	case !a.Routing.Known(req.EventType):
		details = append(details, "event_type must be one of: "+strings.Join(a.Routing.SupportedEvents(), ", "))
	}
	if strings.TrimSpace(req.Assignee) == "" {
		details = append(details, "assignee is required")
	}
	return details
}

func (a *App) listEventsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := a.Store.ListEvents(r.Context(), limitParam(r))
	if err != nil {
		a.Logger.Error("Failed to load events", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load events"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}

func (a *App) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	ns, err := a.Store.ListNotifications(r.Context(), limitParam(r))
	if err != nil {
		a.Logger.Error("Failed to load notifications", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load notifications"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": ns})
}

func (a *App) recipientNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	recipient := chi.URLParam(r, "recipient")
	ns, err := a.Store.NotificationsFor(r.Context(), recipient)
	if err != nil {
		a.Logger.Error("Failed to load notifications", zap.String("recipient", recipient), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load notifications"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipient": recipient, "items": ns})
}

func (a *App) listEscalationsHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Store.ListEscalations(r.Context(), limitParam(r))
	if err != nil {
		a.Logger.Error("Failed to load escalations", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load escalations"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (a *App) supportedEventsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": a.Routing.SupportedEvents()})
}

func (a *App) getRecipientHandler(w http.ResponseWriter, r *http.Request) {
	recipient := chi.URLParam(r, "recipient")
	p, ok := a.Recipients.Profile(recipient)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "recipient not registered"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) putRecipientHandler(w http.ResponseWriter, r *http.Request) {
	recipient := chi.URLParam(r, "recipient")

	var p routing.RecipientProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON", Details: []string{err.Error()}})
		return
	}
	if p.Plan != "" {
		if _, ok := a.Routing.Plan(p.Plan); !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown plan", Details: []string{"plan must be one of: " + strings.Join(a.planNames(), ", ")}})
			return
		}
	}

	a.Recipients.Register(recipient, p)
	a.Logger.Info("Recipient registered", zap.String("recipient", recipient), zap.String("plan", p.Plan))
	writeJSON(w, http.StatusOK, p)
}

func (a *App) planNames() []string {
	names := make([]string, 0, len(a.Routing.Plans))
	for name := range a.Routing.Plans {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// limitParam reads ?limit=, returning 0 (store default) when absent or invalid.
func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
