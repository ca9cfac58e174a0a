package quota

// Plan tiers.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Quota is a user's entitlement snapshot.
type Quota struct {
	UserID string `json:"userId"`
	Plan   string `json:"plan"`
	Used   int    `json:"used"`
	Cap    int    `json:"cap"`
}

// Remaining reports credits left under the free tier. Pro users are unmetered.
func (q Quota) Remaining() int {
	if q.Plan == PlanPro {
		return -1
	}
	if q.Used >= q.Cap {
		return 0
	}
	return q.Cap - q.Used
}
