package orders

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valcrest-online/valcrest-backend/pkg/enums"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
)

var decimalHundred = decimal.NewFromInt(100)

// Payload is the closed set of purchase payload variants. The unexported
// marker keeps the set closed, so dispatch stays a total type switch and a new
// flow cannot be added without touching it.
type Payload interface {
	flow() enums.OrderFlow
	validate() error
}

// WebshopItem is one cart line.
type WebshopItem struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// WebshopPayload is a cart checkout. When IsGift is set the purchase is
// delivered to GiftCharacterName and the buyer's character fields are ignored.
type WebshopPayload struct {
	Items             []WebshopItem
	CharacterID       *uuid.UUID
	CharacterName     string
	IsGift            bool
	GiftCharacterName string
}

func (WebshopPayload) flow() enums.OrderFlow { return enums.OrderFlowWebshop }

func (p WebshopPayload) validate() error {
	if len(p.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	for _, item := range p.Items {
		if strings.TrimSpace(item.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart item name is required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart item quantity must be positive")
		}
		if !item.UnitPrice.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart item price must be positive")
		}
	}
	if p.IsGift && strings.TrimSpace(p.GiftCharacterName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gift character name is required")
	}
	return nil
}

// Recipient is the character the purchase is delivered to.
func (p WebshopPayload) Recipient() string {
	if p.IsGift {
		return p.GiftCharacterName
	}
	return p.CharacterName
}

// TotalCents sums the cart in cents.
func (p WebshopPayload) TotalCents() int64 {
	total := decimal.Zero
	for _, item := range p.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Mul(decimalHundred).IntPart()
}

// BundlePayload is a flash-sale bundle purchase against limited stock.
type BundlePayload struct {
	BundleID      uuid.UUID
	CharacterID   *uuid.UUID
	CharacterName string
}

func (BundlePayload) flow() enums.OrderFlow { return enums.OrderFlowBundle }

func (p BundlePayload) validate() error {
	if p.BundleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bundle id is required")
	}
	return nil
}

// GamePassPurchasePayload buys a pass tier, or upgrades onto one.
type GamePassPurchasePayload struct {
	Tier    enums.GamePassTier
	Upgrade bool
}

func (GamePassPurchasePayload) flow() enums.OrderFlow { return enums.OrderFlowGamePass }

func (p GamePassPurchasePayload) validate() error {
	if !p.Tier.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown game pass tier")
	}
	return nil
}

// GamePassExtendPayload extends an existing pass by a number of days.
type GamePassExtendPayload struct {
	Tier enums.GamePassTier
	Days int
}

func (GamePassExtendPayload) flow() enums.OrderFlow { return enums.OrderFlowGamePassExtend }

func (p GamePassExtendPayload) validate() error {
	if !p.Tier.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown game pass tier")
	}
	if p.Days <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "days must be positive")
	}
	return nil
}
