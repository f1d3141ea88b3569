package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prophive/push-dispatcher/internal/auth"
	"github.com/prophive/push-dispatcher/internal/directory"
	"github.com/prophive/push-dispatcher/internal/dispatch"
	"github.com/prophive/push-dispatcher/internal/domain"
	"github.com/prophive/push-dispatcher/internal/metrics"
)

// Expected table names per webhook route.
const (
	TableActivityEvents = "activity_events"
	TablePayments       = "payments"
	TableMessages       = "messages"
)

// Dispatcher is the pipeline behind every webhook route.
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.ActivityEvent, sel directory.Selector) (*dispatch.Result, error)
}

// WebhookHandler validates inbound database webhooks and hands the decoded
// event to the dispatch pipeline. Each route expects INSERTs on one table;
// anything else is rejected before any other component is touched.
type WebhookHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewWebhookHandler(dispatcher Dispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		logger:     logger.With("component", "webhook_handler"),
	}
}

// ActivityEvents handles INSERTs on activity_events, notifying every device
// in the owning organization.
func (h *WebhookHandler) ActivityEvents(w http.ResponseWriter, r *http.Request) {
	env, err := decodeEnvelope[domain.ActivityEvent](r, TableActivityEvents)
	if err != nil {
		h.reject(w, TableActivityEvents, err)
		return
	}

	event := env.Record
	h.dispatch(w, r, TableActivityEvents, event, directory.Selector{OrganizationID: event.OrganizationID})
}

// Payments handles INSERTs on payments; the payment is adapted into a
// payment_received event for the whole organization.
func (h *WebhookHandler) Payments(w http.ResponseWriter, r *http.Request) {
	env, err := decodeEnvelope[domain.Payment](r, TablePayments)
	if err != nil {
		h.reject(w, TablePayments, err)
		return
	}

	event := env.Record.ToActivityEvent()
	h.dispatch(w, r, TablePayments, event, directory.Selector{OrganizationID: event.OrganizationID})
}

// Messages handles INSERTs on messages, notifying only the recipient user.
func (h *WebhookHandler) Messages(w http.ResponseWriter, r *http.Request) {
	env, err := decodeEnvelope[domain.Message](r, TableMessages)
	if err != nil {
		h.reject(w, TableMessages, err)
		return
	}

	event := env.Record.ToActivityEvent()
	h.dispatch(w, r, TableMessages, event, directory.Selector{UserID: env.Record.UserID})
}

// dispatch runs the pipeline and maps its result onto the HTTP contract:
// 200 for full or partial success and for "nothing to send", 500 when every
// attempted delivery failed or an abort-class error stopped the pipeline.
func (h *WebhookHandler) dispatch(w http.ResponseWriter, r *http.Request, table string, event domain.ActivityEvent, sel directory.Selector) {
	result, err := h.dispatcher.Dispatch(r.Context(), event, sel)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(table, "failed").Inc()
		switch {
		case errors.Is(err, directory.ErrUnavailable):
			respondError(w, http.StatusInternalServerError, "Error fetching device data", err.Error())
		case errors.Is(err, auth.ErrCredentialExchange):
			respondError(w, http.StatusInternalServerError, "Error obtaining access token", err.Error())
		default:
			h.logger.Error("unhandled dispatch error", "error", err, "table", table)
			respondError(w, http.StatusInternalServerError, "Internal error", err.Error())
		}
		return
	}

	if !result.Success {
		// Every attempted recipient failed; distinct from "nothing to send".
		metrics.WebhookEvents.WithLabelValues(table, "all_failed").Inc()
		respondJSON(w, http.StatusInternalServerError, struct {
			Success       bool               `json:"success"`
			Message       string             `json:"message"`
			Notifications []dispatch.Outcome `json:"notifications"`
		}{
			Success:       false,
			Message:       "All notifications failed to send",
			Notifications: result.Notifications,
		})
		return
	}

	metrics.WebhookEvents.WithLabelValues(table, "dispatched").Inc()
	respondJSON(w, http.StatusOK, result)
}

func (h *WebhookHandler) reject(w http.ResponseWriter, table string, err error) {
	metrics.WebhookEvents.WithLabelValues(table, "rejected").Inc()
	h.logger.Warn("rejected webhook", "table", table, "error", err)

	if errors.Is(err, domain.ErrInvalidEvent) {
		respondError(w, http.StatusBadRequest, "Not an INSERT on "+table, err.Error())
		return
	}
	respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
}

// decodeEnvelope parses and validates one webhook envelope.
func decodeEnvelope[T any](r *http.Request, table string) (*domain.Envelope[T], error) {
	var env domain.Envelope[T]
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		return nil, err
	}
	if err := env.Validate(table); err != nil {
		return nil, err
	}
	return &env, nil
}
