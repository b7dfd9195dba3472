package enums

import "fmt"

// ProviderOrderStatus tracks an in-flight payment order.
type ProviderOrderStatus string

const (
	ProviderOrderStatusPending   ProviderOrderStatus = "pending"
	ProviderOrderStatusCompleted ProviderOrderStatus = "completed"
	ProviderOrderStatusCancelled ProviderOrderStatus = "cancelled"
)

var validProviderOrderStatuses = []ProviderOrderStatus{
	ProviderOrderStatusPending,
	ProviderOrderStatusCompleted,
	ProviderOrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s ProviderOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProviderOrderStatus.
func (s ProviderOrderStatus) IsValid() bool {
	for _, candidate := range validProviderOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProviderOrderStatus converts raw input into a ProviderOrderStatus.
func ParseProviderOrderStatus(value string) (ProviderOrderStatus, error) {
	for _, candidate := range validProviderOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid provider order status %q", value)
}
