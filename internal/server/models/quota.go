package models

// QuotaStatus reports usage against the limit of the current credential.
type QuotaStatus struct {
	ChecksDone int
	Limit      int
	Remaining  int
}

// PercentLeft is the share of the limit still available, rounded to the
// nearest percent.
func (s QuotaStatus) PercentLeft() int {
	if s.Limit <= 0 {
		return 0
	}
	return (s.Remaining*100 + s.Limit/2) / s.Limit
}
