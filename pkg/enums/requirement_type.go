package enums

import "fmt"

// RequirementType classifies how achievement progress is measured.
// Custom requirements are evaluated by the game server, never locally.
type RequirementType string

const (
	RequirementTypeLevel    RequirementType = "level"
	RequirementTypeKills    RequirementType = "kills"
	RequirementTypeBosses   RequirementType = "bosses"
	RequirementTypePlaytime RequirementType = "playtime_hours"
	RequirementTypeCustom   RequirementType = "custom"
)

var validRequirementTypes = []RequirementType{
	RequirementTypeLevel,
	RequirementTypeKills,
	RequirementTypeBosses,
	RequirementTypePlaytime,
	RequirementTypeCustom,
}

// String implements fmt.Stringer.
func (r RequirementType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequirementType.
func (r RequirementType) IsValid() bool {
	for _, candidate := range validRequirementTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRequirementType converts raw input into a RequirementType.
func ParseRequirementType(value string) (RequirementType, error) {
	for _, candidate := range validRequirementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid requirement type %q", value)
}
