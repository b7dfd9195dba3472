package enums

import "fmt"

// LedgerSource names the action that produced a reward credit.
type LedgerSource string

const (
	LedgerSourceVote        LedgerSource = "vote"
	LedgerSourceAchievement LedgerSource = "achievement"
	LedgerSourceWheel       LedgerSource = "wheel"
	LedgerSourceOrder       LedgerSource = "order"
)

var validLedgerSources = []LedgerSource{
	LedgerSourceVote,
	LedgerSourceAchievement,
	LedgerSourceWheel,
	LedgerSourceOrder,
}

// String implements fmt.Stringer.
func (s LedgerSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LedgerSource.
func (s LedgerSource) IsValid() bool {
	for _, candidate := range validLedgerSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLedgerSource converts raw input into a LedgerSource.
func ParseLedgerSource(value string) (LedgerSource, error) {
	for _, candidate := range validLedgerSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger source %q", value)
}
