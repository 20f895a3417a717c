package mood

import (
	"sort"
	"strings"
	"time"

	"peerhive/internal/domain/dashboard"
	"peerhive/internal/domain/post"
)

// Aggregation window sizes
const (
	ActivityDays     = 7
	TopKeywordsLimit = 7
	dateLayout       = "2006-01-02"
)

// Aggregator turns a snapshot of posts into the admin dashboard view model.
// It keeps no state between calls.
type Aggregator struct {
	lexicon *Lexicon
}

// NewAggregator creates an aggregator ranking cues from lex
func NewAggregator(lex *Lexicon) *Aggregator {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Aggregator{lexicon: lex}
}

// Aggregate computes KPIs, the daily activity series and the keyword table
// for posts as seen at now.
func (a *Aggregator) Aggregate(posts []post.Post, now time.Time) dashboard.ViewModel {
	return dashboard.ViewModel{
		KPIs:                computeKPIs(posts, now),
		ActivitySeries:      activitySeries(posts, now),
		TopNegativeKeywords: a.rankKeywords(posts),
		GeneratedAt:         now.UTC(),
	}
}

func computeKPIs(posts []post.Post, now time.Time) dashboard.KPIs {
	oneHourAgo := now.Add(-time.Hour)
	twoHoursAgo := now.Add(-2 * time.Hour)

	var atRiskNow, atRiskPrev int
	authors := make(map[string]struct{})

	for _, p := range posts {
		if p.Author != "" {
			authors[p.Author] = struct{}{}
		}
		if !p.HasTimestamp() || !p.Zone.AtRisk() {
			continue
		}

		ts := p.Timestamp
		switch {
		case ts.After(oneHourAgo) && !ts.After(now):
			atRiskNow++
		case ts.After(twoHoursAgo) && !ts.After(oneHourAgo):
			atRiskPrev++
		}
	}

	return dashboard.KPIs{
		TotalPosts:   len(posts),
		AtRiskNow:    atRiskNow,
		AtRiskChange: dashboard.Delta(atRiskNow - atRiskPrev),
		ActiveUsers:  len(authors),
	}
}

func activitySeries(posts []post.Post, now time.Time) []dashboard.DailyActivity {
	series := make([]dashboard.DailyActivity, ActivityDays)
	index := make(map[string]int, ActivityDays)

	today := now.UTC()
	for i := 0; i < ActivityDays; i++ {
		day := today.AddDate(0, 0, i-(ActivityDays-1)).Format(dateLayout)
		series[i] = dashboard.DailyActivity{Date: day}
		index[day] = i
	}

	for _, p := range posts {
		if !p.HasTimestamp() {
			continue
		}
		i, ok := index[p.Timestamp.UTC().Format(dateLayout)]
		if !ok {
			continue
		}
		switch p.Zone {
		case post.ZoneCalm:
			series[i].Calm++
		case post.ZoneStressed:
			series[i].Stressed++
		case post.ZoneOverwhelmed:
			series[i].Overwhelmed++
		}
	}

	return series
}

func (a *Aggregator) rankKeywords(posts []post.Post) []dashboard.KeywordCount {
	keywords := a.lexicon.keywords
	counts := make([]int, len(keywords))

	for _, p := range posts {
		if p.Text == "" {
			continue
		}
		lower := strings.ToLower(p.Text)
		for i, kw := range keywords {
			if strings.Contains(lower, kw) {
				counts[i]++
			}
		}
	}

	ranked := make([]dashboard.KeywordCount, 0, len(keywords))
	for i, kw := range keywords {
		if counts[i] > 0 {
			ranked = append(ranked, dashboard.KeywordCount{Keyword: kw, Count: counts[i]})
		}
	}

	// stable sort keeps lexicon order among equal counts
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > TopKeywordsLimit {
		ranked = ranked[:TopKeywordsLimit]
	}
	return ranked
}
