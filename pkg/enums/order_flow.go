package enums

import "fmt"

// OrderFlow identifies which of the four purchase flows produced an order.
type OrderFlow string

const (
	OrderFlowWebshop        OrderFlow = "webshop"
	OrderFlowBundle         OrderFlow = "bundle"
	OrderFlowGamePass       OrderFlow = "gamepass"
	OrderFlowGamePassExtend OrderFlow = "gamepass_extend"
)

var validOrderFlows = []OrderFlow{
	OrderFlowWebshop,
	OrderFlowBundle,
	OrderFlowGamePass,
	OrderFlowGamePassExtend,
}

// String implements fmt.Stringer.
func (f OrderFlow) String() string {
	return string(f)
}

// IsValid reports whether the value is a known OrderFlow.
func (f OrderFlow) IsValid() bool {
	for _, candidate := range validOrderFlows {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseOrderFlow converts raw input into an OrderFlow.
func ParseOrderFlow(value string) (OrderFlow, error) {
	for _, candidate := range validOrderFlows {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order flow %q", value)
}
