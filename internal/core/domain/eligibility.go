package domain

// Eligibility is the outcome of a vote permission check. When Allowed is
// false, Err holds the sentinel explaining why.
type Eligibility struct {
	Allowed          bool             `json:"canVote"`
	VerificationType VerificationType `json:"verificationType,omitempty"`
	Reason           DenyReason       `json:"reason,omitempty"`
	Err              error            `json:"-"`
}

func Allow(vt VerificationType) Eligibility {
	return Eligibility{Allowed: true, VerificationType: vt}
}

func Deny(err error) Eligibility {
	return Eligibility{Reason: ReasonOf(err), Err: err}
}
