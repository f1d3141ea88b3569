// Package payload maps domain events into push-notification payloads.
package payload

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/prophive/push-dispatcher/internal/domain"
)

// Notification is the provider-agnostic notification content: a title, a
// body, and a flat string-valued data mapping. The delivery API rejects
// non-string data values, so every value is coerced to a string here.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// clickActions routes mapped event types to an app screen; anything else
// falls back to ActionOpenApp.
var clickActions = map[string]string{
	"payment_received": "VIEW_PAYMENT",
	"payment_overdue":  "VIEW_OVERDUE_PAYMENT",
	"tenant_assigned":  "VIEW_TENANT",
	"tenant_vacated":   "VIEW_UNIT",
	"property_added":   "VIEW_PROPERTY",
}

// ActionOpenApp is the routing action for unmapped event types.
const ActionOpenApp = "OPEN_APP"

// highPriorityEvents get a priority: high marker in the data block; all other
// event types omit the key.
var highPriorityEvents = map[string]bool{
	"payment_overdue": true,
	"tenant_vacated":  true,
}

// Build derives the notification for an event. It is a pure function of the
// event and never fails: unknown extension values are stringified, nulls are
// dropped, missing optional ids are omitted.
//
// Extension-data keys that collide with the computed keys win (later write),
// except priority, which is applied last and always reflects the event type.
func Build(event domain.ActivityEvent) Notification {
	data := map[string]string{
		"event_type":      event.EventType,
		"entity_type":     event.EntityType,
		"entity_id":       strconv.FormatInt(event.EntityID, 10),
		"requires_action": strconv.FormatBool(event.RequiresAction),
		"click_action":    clickAction(event.EventType),
	}

	if id := event.PropertyID; id != nil && *id != 0 {
		data["property_id"] = strconv.FormatInt(*id, 10)
	}
	if id := event.UnitID; id != nil && *id != 0 {
		data["unit_id"] = strconv.FormatInt(*id, 10)
	}
	if id := event.TenantID; id != nil && *id != 0 {
		data["tenant_id"] = strconv.FormatInt(*id, 10)
	}

	for key, value := range event.Data {
		if s, ok := coerceString(value); ok {
			data[key] = s
		}
	}

	if highPriorityEvents[event.EventType] {
		data["priority"] = "high"
	}

	return Notification{
		Title: event.Title,
		Body:  event.Description,
		Data:  data,
	}
}

func clickAction(eventType string) string {
	if action, ok := clickActions[eventType]; ok {
		return action
	}
	return ActionOpenApp
}

// coerceString renders an extension-data value as a string. Nulls report
// false and are dropped; objects and arrays are serialized to compact JSON.
func coerceString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		// JSON numbers decode as float64; format without a trailing .0
		// for integral values.
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	case map[string]any, []any:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v), true
		}
		return string(raw), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}
