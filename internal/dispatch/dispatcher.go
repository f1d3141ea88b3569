// Package dispatch orchestrates the notification pipeline: recipient
// resolution, credential acquisition, payload transformation, and fan-out
// delivery with per-recipient isolation.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/prophive/push-dispatcher/internal/directory"
	"github.com/prophive/push-dispatcher/internal/domain"
	"github.com/prophive/push-dispatcher/internal/fcm"
	"github.com/prophive/push-dispatcher/internal/metrics"
	"github.com/prophive/push-dispatcher/internal/payload"
)

// Sender delivers one notification to one device token.
type Sender interface {
	Send(ctx context.Context, bearerToken, deviceToken string, n payload.Notification, data map[string]string) (fcm.Result, error)
}

// TokenSource mints a bearer token for the delivery provider.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Outcome is the per-recipient delivery result. Response carries the
// provider's raw response, or a synthesized error object when the send never
// reached the provider.
type Outcome struct {
	UserID   string          `json:"userId"`
	Success  bool            `json:"success"`
	Response json.RawMessage `json:"response"`
}

// Result aggregates one dispatch. Success is true when there was nothing to
// send or at least one delivery succeeded; PartialSuccess reports whether any
// delivery failed. Outcomes preserve resolver order.
type Result struct {
	Success        bool      `json:"success"`
	PartialSuccess bool      `json:"partialSuccess"`
	Notifications  []Outcome `json:"notifications"`
}

// Dispatcher runs the pipeline for one event at a time. It holds no mutable
// state between dispatches; concurrent calls are independent.
type Dispatcher struct {
	resolver      directory.Resolver
	tokens        TokenSource
	sender        Sender
	maxConcurrent int
	logger        *slog.Logger
}

// New assembles a dispatcher.
func New(resolver directory.Resolver, tokens TokenSource, sender Sender, maxConcurrent int, logger *slog.Logger) *Dispatcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Dispatcher{
		resolver:      resolver,
		tokens:        tokens,
		sender:        sender,
		maxConcurrent: maxConcurrent,
		logger:        logger.With("component", "dispatcher"),
	}
}

// Dispatch processes one event end to end. A returned error is always one of
// the abort classes (directory.ErrUnavailable, auth.ErrCredentialExchange);
// delivery failures never surface as errors, they are recorded in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.ActivityEvent, sel directory.Selector) (*Result, error) {
	dispatchID := uuid.NewString()
	logger := d.logger.With("dispatch_id", dispatchID, "event_type", event.EventType, "event_id", event.ID)

	recipients, err := d.resolver.Resolve(ctx, sel)
	if err != nil {
		logger.Error("recipient resolution failed", "error", err)
		return nil, err
	}

	if len(recipients) == 0 {
		// Valid outcome, and no reason to pay for a token exchange.
		logger.Info("no recipients with device tokens, nothing to send")
		return &Result{Success: true, Notifications: []Outcome{}}, nil
	}

	bearer, err := d.tokens.Token(ctx)
	if err != nil {
		logger.Error("credential exchange failed", "error", err)
		return nil, err
	}

	// One payload, shared read-only across all sends.
	n := payload.Build(event)
	data := make(map[string]string, len(n.Data)+2)
	for k, v := range n.Data {
		data[k] = v
	}
	data["event_id"] = strconv.FormatInt(event.ID, 10)
	data["created_at"] = event.CreatedAt

	outcomes := make([]Outcome, len(recipients))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxConcurrent)
	for i, rec := range recipients {
		i, rec := i, rec
		g.Go(func() error {
			outcomes[i] = d.send(gctx, bearer, rec, n, data)
			// A recipient's failure must never abort the remaining sends.
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, o := range outcomes {
		if o.Success {
			succeeded++
		}
		metrics.Deliveries.WithLabelValues(event.EventType, outcomeLabel(o.Success)).Inc()
	}

	result := &Result{
		Success:        succeeded > 0,
		PartialSuccess: succeeded < len(outcomes),
		Notifications:  outcomes,
	}

	logger.Info("dispatch complete",
		"recipients", len(recipients),
		"succeeded", succeeded,
		"failed", len(outcomes)-succeeded,
	)

	return result, nil
}

// send delivers to one recipient, converting transport errors into failure
// outcomes with a synthesized error body.
func (d *Dispatcher) send(ctx context.Context, bearer string, rec domain.Recipient, n payload.Notification, data map[string]string) Outcome {
	start := time.Now()

	res, err := d.sender.Send(ctx, bearer, rec.Token, n, data)
	elapsed := float64(time.Since(start).Milliseconds())

	if err != nil {
		metrics.SendLatency.WithLabelValues("error").Observe(elapsed)
		d.logger.Warn("send failed", "user_id", rec.ID, "error", err)
		return Outcome{
			UserID:   rec.ID,
			Success:  false,
			Response: synthesizeError(err),
		}
	}

	metrics.SendLatency.WithLabelValues(outcomeLabel(res.Success)).Observe(elapsed)

	return Outcome{
		UserID:   rec.ID,
		Success:  res.Success,
		Response: res.Body,
	}
}

func synthesizeError(err error) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"message": err.Error(),
			"code":    500,
		},
	})
	return raw
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
