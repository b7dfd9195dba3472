package enums

import "fmt"

// GamePassTier is a purchasable entitlement tier.
type GamePassTier string

const (
	GamePassTierElite GamePassTier = "elite"
	GamePassTierGold  GamePassTier = "gold"
)

var validGamePassTiers = []GamePassTier{
	GamePassTierElite,
	GamePassTierGold,
}

// String implements fmt.Stringer.
func (t GamePassTier) String() string {
	return string(t)
}

// IsValid reports whether the value is a known GamePassTier.
func (t GamePassTier) IsValid() bool {
	for _, candidate := range validGamePassTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseGamePassTier converts raw input into a GamePassTier.
func ParseGamePassTier(value string) (GamePassTier, error) {
	for _, candidate := range validGamePassTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid game pass tier %q", value)
}
