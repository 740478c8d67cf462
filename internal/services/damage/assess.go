// Package damage maps a return-time damage severity and an item value
// to a penalty amount.
package damage

import "github.com/terminal-bench/lendvault/internal/models"

// Fraction of item value charged per severity, expressed as a divisor.
// Severe damage charges the full value.
var divisors = map[models.DamageSeverity]int{
	models.SeverityLight:  4,
	models.SeverityMedium: 3,
	models.SeverityHigh:   2,
	models.SeveritySevere: 1,
}

// Assess returns the penalty amount for the given severity and item
// value using truncating integer division. Severity none costs nothing.
// Callers validate severity strings with models.ParseSeverity before
// calling; an unknown severity here assesses to zero.
func Assess(severity models.DamageSeverity, value int) int {
	d, ok := divisors[severity]
	if !ok {
		return 0
	}
	return value / d
}
