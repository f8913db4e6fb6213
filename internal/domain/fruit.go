package domain

// quickWinIDs lists issue ids that are maximal-impact, minimal-effort fixes.
// Legal-compliance gaps top the list: highest business risk, trivial to
// remediate. Order is priority order.
var quickWinIDs = []string{
	"legal-missing-impressum",
	"legal-missing-privacy-policy",
	"gdpr-missing-cookie-banner",
	"legal-stale-copyright-year",
}

// SelectLowHangingFruit picks at most one quick-win recommendation from an
// issue list. Whitelisted ids win over severity ranking; otherwise the
// highest-severity issue wins, ties broken by input order. Returns nil for an
// empty list or when nothing matches. Never mutates the input.
func SelectLowHangingFruit(issues []Issue) *Issue {
	if len(issues) == 0 {
		return nil
	}
	for _, id := range quickWinIDs {
		for i := range issues {
			if issues[i].ID == id {
				iss := issues[i]
				return &iss
			}
		}
	}
	best := -1
	for i := range issues {
		if best < 0 || issues[i].Severity.Rank() > issues[best].Severity.Rank() {
			best = i
		}
	}
	if best < 0 || issues[best].Severity.Rank() == 0 {
		return nil
	}
	iss := issues[best]
	return &iss
}
