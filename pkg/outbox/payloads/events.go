package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// NotificationRequestedEvent hands a dispatched notification to the delivery
// transport. Recipients are user ids; the transport resolves addresses.
type NotificationRequestedEvent struct {
	Kind       enums.NotificationKind     `json:"kind"`
	Audience   enums.NotificationAudience `json:"audience"`
	Recipients []uuid.UUID                `json:"recipients"`
	Title      string                     `json:"title"`
	Message    string                     `json:"message"`
	Payload    map[string]string          `json:"payload"`
}
