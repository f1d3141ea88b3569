package domain

import "fmt"

// ActivityEvent is an inserted row on the activity_events table. It is the
// canonical event shape the dispatch pipeline works on; the other webhook
// variants are adapted into it. Data carries free-form extension fields whose
// values can be strings, numbers, booleans, nulls, or nested objects.
type ActivityEvent struct {
	ID             int64          `json:"id"`
	OrganizationID string         `json:"organization_id"`
	EventType      string         `json:"event_type"`
	EntityType     string         `json:"entity_type"`
	EntityID       int64          `json:"entity_id"`
	PropertyID     *int64         `json:"property_id,omitempty"`
	UnitID         *int64         `json:"unit_id,omitempty"`
	TenantID       *int64         `json:"tenant_id,omitempty"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Data           map[string]any `json:"data,omitempty"`
	IsRead         bool           `json:"is_read"`
	RequiresAction bool           `json:"requires_action"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
}

// Payment is an inserted row on the payments table. Payment webhooks notify
// the whole organization, so a payment is adapted into a payment_received
// activity event before dispatch.
type Payment struct {
	ID              int64   `json:"id"`
	UnitTenancyID   int64   `json:"unitTenancyId"`
	Amount          float64 `json:"amount"`
	PaymentDate     string  `json:"paymentDate"`
	DueDate         string  `json:"dueDate"`
	PaymentStatus   string  `json:"paymentStatus"`
	PaymentMethod   string  `json:"paymentMethod"`
	ReferenceNumber string  `json:"referenceNumber"`
	Description     string  `json:"description"`
	OrganizationID  string  `json:"organizationId"`
	PropertyID      *int64  `json:"propertyId,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

// ToActivityEvent adapts the payment into the canonical event shape.
func (p Payment) ToActivityEvent() ActivityEvent {
	return ActivityEvent{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		EventType:      "payment_received",
		EntityType:     "payment",
		EntityID:       p.ID,
		PropertyID:     p.PropertyID,
		Title:          "New Payment Received",
		Description:    fmt.Sprintf("A new payment of %.2f has been made: %s", p.Amount, p.Description),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// Message is an inserted row on the messages table. Message webhooks target a
// single user rather than an organization.
type Message struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id"`
	Body      string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// ToActivityEvent adapts the message into the canonical event shape.
func (m Message) ToActivityEvent() ActivityEvent {
	return ActivityEvent{
		ID:          m.ID,
		EventType:   "message_received",
		EntityType:  "message",
		EntityID:    m.ID,
		Title:       "New message",
		Description: m.Body,
		CreatedAt:   m.CreatedAt,
	}
}
