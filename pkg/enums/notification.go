package enums

import "fmt"

// NotificationKind identifies what happened.
type NotificationKind string

const (
	NotificationKindNewOrder         NotificationKind = "new_order"
	NotificationKindOrderCancelled   NotificationKind = "order_cancelled"
	NotificationKindLowStock         NotificationKind = "low_stock"
	NotificationKindDailySalesReport NotificationKind = "daily_sales_report"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindNewOrder,
	NotificationKindOrderCancelled,
	NotificationKindLowStock,
	NotificationKindDailySalesReport,
}

// IsValid checks whether the given kind matches the canonical enum.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw strings into NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}

// NotificationAudience says who a notification was addressed to.
type NotificationAudience string

const (
	AudienceAllAdmins      NotificationAudience = "all_admins"
	AudienceOrderOwner     NotificationAudience = "order_owner"
	AudienceProductCreator NotificationAudience = "product_creator"
)

var validNotificationAudiences = []NotificationAudience{
	AudienceAllAdmins,
	AudienceOrderOwner,
	AudienceProductCreator,
}

// IsValid checks whether the audience matches the canonical enum.
func (a NotificationAudience) IsValid() bool {
	for _, candidate := range validNotificationAudiences {
		if candidate == a {
			return true
		}
	}
	return false
}
