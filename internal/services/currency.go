package services

import (
	"fmt"
	"math"
	"strings"
)

// FormatNOK renders the rounded magnitude of an amount as a whole-number
// string with a single space between thousands groups, e.g. 600000 ->
// "600 000". Values below 1000 get no separator. The sign is the
// caller's concern: line renderers prefix "-" for deduction amounts.
func FormatNOK(amount float64) string {
	digits := fmt.Sprintf("%.0f", math.Abs(amount))

	n := len(digits)
	if n <= 3 {
		return digits
	}

	// Size the leading group so the remaining groups are full threes
	groups := make([]string, 0, n/3+1)
	head := n % 3
	if head > 0 {
		groups = append(groups, digits[:head])
	}
	for i := head; i < n; i += 3 {
		groups = append(groups, digits[i:i+3])
	}

	return strings.Join(groups, " ")
}
