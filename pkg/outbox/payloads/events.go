package payloads

import "github.com/google/uuid"

// OrderCreated is emitted when an order dispatch succeeds.
type OrderCreated struct {
	OrderID   uuid.UUID `json:"orderId"`
	Token     string    `json:"token"`
	Flow      string    `json:"flow"`
	AccountID uuid.UUID `json:"accountId"`
}

// OrderCancelled is emitted when a checkout attempt is abandoned.
type OrderCancelled struct {
	OrderID   uuid.UUID `json:"orderId"`
	Token     string    `json:"token"`
	Flow      string    `json:"flow"`
	AccountID uuid.UUID `json:"accountId"`
}

// OrderPaid is emitted when the provider confirms capture.
type OrderPaid struct {
	OrderID   uuid.UUID `json:"orderId"`
	Token     string    `json:"token"`
	Flow      string    `json:"flow"`
	AccountID uuid.UUID `json:"accountId"`
}

// RewardCredited is emitted after the game server confirms a reward credit.
type RewardCredited struct {
	AccountID   uuid.UUID  `json:"accountId"`
	CharacterID *uuid.UUID `json:"characterId,omitempty"`
	Source      string     `json:"source"`
	SourceRef   string     `json:"sourceRef"`
	Coins       int        `json:"coins"`
	VipDays     int        `json:"vipDays"`
}
