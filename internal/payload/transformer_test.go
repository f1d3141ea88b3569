package payload

import (
	"encoding/json"
	"testing"

	"github.com/prophive/push-dispatcher/internal/domain"
)

func int64Ptr(n int64) *int64 { return &n }

func TestBuild_ClickActions(t *testing.T) {
	tests := []struct {
		eventType    string
		wantAction   string
		wantPriority bool
	}{
		{"payment_received", "VIEW_PAYMENT", false},
		{"payment_overdue", "VIEW_OVERDUE_PAYMENT", true},
		{"tenant_assigned", "VIEW_TENANT", false},
		{"tenant_vacated", "VIEW_UNIT", true},
		{"property_added", "VIEW_PROPERTY", false},
		{"lease_renewed", "OPEN_APP", false},
		{"", "OPEN_APP", false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			n := Build(domain.ActivityEvent{EventType: tt.eventType})

			if got := n.Data["click_action"]; got != tt.wantAction {
				t.Errorf("click_action: got %q, want %q", got, tt.wantAction)
			}

			priority, ok := n.Data["priority"]
			if tt.wantPriority {
				if !ok || priority != "high" {
					t.Errorf("priority: got %q (present=%v), want high", priority, ok)
				}
			} else if ok {
				t.Errorf("priority should be absent, got %q", priority)
			}
		})
	}
}

func TestBuild_ReservedKeys(t *testing.T) {
	n := Build(domain.ActivityEvent{
		ID:             7,
		EventType:      "payment_overdue",
		EntityType:     "payment",
		EntityID:       42,
		RequiresAction: true,
		Title:          "Rent overdue",
		Description:    "Unit 4B rent is 10 days late",
	})

	if n.Title != "Rent overdue" {
		t.Errorf("title: got %q", n.Title)
	}
	if n.Body != "Unit 4B rent is 10 days late" {
		t.Errorf("body: got %q", n.Body)
	}

	want := map[string]string{
		"event_type":      "payment_overdue",
		"entity_type":     "payment",
		"entity_id":       "42",
		"requires_action": "true",
		"click_action":    "VIEW_OVERDUE_PAYMENT",
		"priority":        "high",
	}
	for k, v := range want {
		if n.Data[k] != v {
			t.Errorf("data[%q]: got %q, want %q", k, n.Data[k], v)
		}
	}
}

func TestBuild_OptionalIDs(t *testing.T) {
	tests := []struct {
		name  string
		event domain.ActivityEvent
		want  map[string]string
		skip  []string
	}{
		{
			name: "all present",
			event: domain.ActivityEvent{
				PropertyID: int64Ptr(1),
				UnitID:     int64Ptr(2),
				TenantID:   int64Ptr(3),
			},
			want: map[string]string{"property_id": "1", "unit_id": "2", "tenant_id": "3"},
		},
		{
			name:  "all absent",
			event: domain.ActivityEvent{},
			skip:  []string{"property_id", "unit_id", "tenant_id"},
		},
		{
			name: "zero id treated as absent",
			event: domain.ActivityEvent{
				PropertyID: int64Ptr(0),
				UnitID:     int64Ptr(9),
			},
			want: map[string]string{"unit_id": "9"},
			skip: []string{"property_id", "tenant_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Build(tt.event)
			for k, v := range tt.want {
				if n.Data[k] != v {
					t.Errorf("data[%q]: got %q, want %q", k, n.Data[k], v)
				}
			}
			for _, k := range tt.skip {
				if got, ok := n.Data[k]; ok {
					t.Errorf("data[%q] should be absent, got %q", k, got)
				}
			}
		})
	}
}

func TestBuild_ExtensionData(t *testing.T) {
	n := Build(domain.ActivityEvent{
		EventType: "payment_received",
		Data: map[string]any{
			"amount":   float64(1250),
			"fraction": 42.5,
			"note":     "on time",
			"flagged":  true,
			"dropped":  nil,
			"nested":   map[string]any{"a": float64(1)},
			"list":     []any{"x", float64(2)},
		},
	})

	tests := map[string]string{
		"amount":   "1250",
		"fraction": "42.5",
		"note":     "on time",
		"flagged":  "true",
		"nested":   `{"a":1}`,
		"list":     `["x",2]`,
	}
	for k, want := range tests {
		if got := n.Data[k]; got != want {
			t.Errorf("data[%q]: got %q, want %q", k, got, want)
		}
	}

	if _, ok := n.Data["dropped"]; ok {
		t.Error("null extension values should be dropped")
	}

	// Every value must be a string after coercion — encode and verify.
	raw, err := json.Marshal(n.Data)
	if err != nil {
		t.Fatalf("data should marshal cleanly: %v", err)
	}
	var roundTrip map[string]string
	if err := json.Unmarshal(raw, &roundTrip); err != nil {
		t.Fatalf("data contains non-string values: %v", err)
	}
}

func TestBuild_ExtensionDataOverridesReserved(t *testing.T) {
	n := Build(domain.ActivityEvent{
		EventType: "lease_renewed",
		Data: map[string]any{
			"click_action": "VIEW_LEASE",
			"entity_type":  "lease",
		},
	})

	if got := n.Data["click_action"]; got != "VIEW_LEASE" {
		t.Errorf("extension data should win on collision, got %q", got)
	}
	if got := n.Data["entity_type"]; got != "lease" {
		t.Errorf("extension data should win on collision, got %q", got)
	}
}

func TestBuild_PriorityNotOverridable(t *testing.T) {
	n := Build(domain.ActivityEvent{
		EventType: "payment_overdue",
		Data:      map[string]any{"priority": "low"},
	})

	if got := n.Data["priority"]; got != "high" {
		t.Errorf("priority is applied after the merge, got %q", got)
	}
}

func TestBuild_Total(t *testing.T) {
	// No event shape may make Build panic.
	events := []domain.ActivityEvent{
		{},
		{Data: map[string]any{}},
		{Data: map[string]any{"weird": map[string]any{"deep": []any{nil, map[string]any{"x": nil}}}}},
		{Data: map[string]any{"": ""}},
		{EventType: "unknown", Data: map[string]any{"n": float64(-0.0001)}},
	}

	for i, event := range events {
		n := Build(event)
		if n.Data == nil {
			t.Errorf("event %d: data must never be nil", i)
		}
	}
}
