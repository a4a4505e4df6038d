package domain

import "strings"

// Classification is the settlement verdict for a raw processor status.
// Exactly one of the three flags is set for a recognized status; all three
// are false for an unrecognized one, which callers must treat as not allowed.
type Classification struct {
	Allowed          bool
	Pending          bool
	TerminalNegative bool
}

// The three disjoint status sets. This is the single authority for whether a
// sale counts toward an available balance; duplicating these lists anywhere
// else is a bug.
var (
	allowedStatuses = map[string]struct{}{
		"paid":      {},
		"approved":  {},
		"confirmed": {},
	}

	pendingStatuses = map[string]struct{}{
		"pending":         {},
		"waiting_payment": {},
		"processing":      {},
		"under_analysis":  {},
	}

	terminalNegativeStatuses = map[string]struct{}{
		"refused":    {},
		"canceled":   {},
		"cancelled":  {},
		"expired":    {},
		"refunded":   {},
		"chargeback": {},
	}
)

// AllowedStatuses returns the statuses that count toward available balance.
// Exposed so persistence queries can be parameterized from the same source
// the classifier uses instead of repeating the list.
func AllowedStatuses() []string {
	return statusSlice(allowedStatuses)
}

// PendingStatuses returns the statuses still awaiting resolution.
func PendingStatuses() []string {
	return statusSlice(pendingStatuses)
}

// TerminalNegativeStatuses returns the permanently excluded statuses.
func TerminalNegativeStatuses() []string {
	return statusSlice(terminalNegativeStatuses)
}

func statusSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// Classify maps a raw processor status string onto the internal settlement
// taxonomy. Unknown statuses classify as none of the buckets (fail-closed).
func Classify(rawStatus string) Classification {
	status := strings.ToLower(strings.TrimSpace(rawStatus))

	if _, ok := allowedStatuses[status]; ok {
		return Classification{Allowed: true}
	}
	if _, ok := pendingStatuses[status]; ok {
		return Classification{Pending: true}
	}
	if _, ok := terminalNegativeStatuses[status]; ok {
		return Classification{TerminalNegative: true}
	}
	return Classification{}
}
