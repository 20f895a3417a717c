package dashboard

import (
	"strconv"
	"time"
)

// Delta is a signed change rendered with an explicit sign for non-negative values
type Delta int

// String renders the delta as "+3", "+0" or "-2"
func (d Delta) String() string {
	if d >= 0 {
		return "+" + strconv.Itoa(int(d))
	}
	return strconv.Itoa(int(d))
}

// MarshalJSON encodes the delta as its signed string form
func (d Delta) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON accepts the signed string form
func (d *Delta) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*d = Delta(n)
	return nil
}

// KPIs holds the headline counters of the admin view
type KPIs struct {
	TotalPosts   int   `json:"totalPosts"`
	AtRiskNow    int   `json:"atRiskNow"`
	AtRiskChange Delta `json:"atRiskChange"`
	ActiveUsers  int   `json:"activeUsers"`
}

// DailyActivity is one calendar-day bucket of the activity series
type DailyActivity struct {
	Date        string `json:"date"`
	Calm        int    `json:"calm"`
	Stressed    int    `json:"stressed"`
	Overwhelmed int    `json:"overwhelmed"`
}

// KeywordCount is one row of the negative keyword table
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// ViewModel is the aggregated admin dashboard. It is recomputed on every
// request and never persisted.
type ViewModel struct {
	KPIs                KPIs            `json:"kpis"`
	ActivitySeries      []DailyActivity `json:"activitySeries"`
	TopNegativeKeywords []KeywordCount  `json:"topNegativeKeywords"`
	GeneratedAt         time.Time       `json:"generatedAt"`
}
