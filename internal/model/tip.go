package model

// Tip impact levels.
const (
	ImpactHigh     = "high"
	ImpactMedium   = "medium"
	ImpactLow      = "low"
	ImpactInfo     = "info"
	ImpactPositive = "positive"
)

// Tip is one advisory produced from a snapshot.
type Tip struct {
	ID          string `json:"id"`
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
}
