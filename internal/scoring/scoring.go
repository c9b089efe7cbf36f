package scoring

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"trendpulse/internal/models"
)

// DefaultTopCount is how many records the top-trends and emerging-trends
// rankings keep.
const DefaultTopCount = 10

// FallbackAnalysis is returned when no platform contributed any data. The
// dashboard parses analysis output by line index, so even the failure case
// is a fixed string.
const FallbackAnalysis = "Unable to fetch trends. No platform data is currently available."

var titleCaser = cases.Title(language.English)

// Score computes the total engagement score for one record:
// volume + sum of engagement sub-metrics, plus a growth term
// (volume * growth/100) when a growth figure is present.
func Score(r models.TrendRecord) float64 {
	total := float64(r.Volume)
	for _, count := range r.Engagement {
		total += float64(count)
	}
	if r.Growth != nil {
		total += float64(r.Volume) * (*r.Growth / 100)
	}
	return total
}

// RankTop sorts records descending by total engagement score. Ties break
// on higher growth, then on the more recent timestamp. The input is not
// mutated.
func RankTop(records []models.TrendRecord, limit int) []models.TrendRecord {
	ranked := make([]models.TrendRecord, len(records))
	copy(ranked, records)

	sort.SliceStable(ranked, func(i, j int) bool {
		scoreI, scoreJ := Score(ranked[i]), Score(ranked[j])
		if scoreI != scoreJ {
			return scoreI > scoreJ
		}
		growthI, growthJ := growthValue(ranked[i]), growthValue(ranked[j])
		if growthI != growthJ {
			return growthI > growthJ
		}
		return ranked[i].Timestamp.After(ranked[j].Timestamp)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// RankEmerging ranks records descending by growth alone, ties broken by
// total engagement score. Records already selected as top trends are
// excluded from the candidate set.
func RankEmerging(records, top []models.TrendRecord, limit int) []models.TrendRecord {
	selected := make(map[string]bool, len(top))
	for _, rec := range top {
		selected[recordKey(rec)] = true
	}

	candidates := make([]models.TrendRecord, 0, len(records))
	for _, rec := range records {
		if !selected[recordKey(rec)] {
			candidates = append(candidates, rec)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		growthI, growthJ := growthValue(candidates[i]), growthValue(candidates[j])
		if growthI != growthJ {
			return growthI > growthJ
		}
		return Score(candidates[i]) > Score(candidates[j])
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// CategoryCount is one row of the category breakdown.
type CategoryCount struct {
	Category string
	Count    int
}

// CategoryCounts tallies records per category, sorted descending by count.
// Equal counts order alphabetically so the breakdown is deterministic.
func CategoryCounts(records []models.TrendRecord) []CategoryCount {
	tally := make(map[string]int)
	for _, rec := range records {
		tally[rec.Category]++
	}

	counts := make([]CategoryCount, 0, len(tally))
	for cat, n := range tally {
		counts = append(counts, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Category < counts[j].Category
	})
	return counts
}

// MostEngagingPlatform sums each platform's record scores and returns the
// platform with the highest total. ok is false when no platform has any
// records.
func MostEngagingPlatform(perPlatform map[models.Platform][]models.TrendRecord) (models.Platform, float64, bool) {
	var best models.Platform
	var bestTotal float64
	found := false

	// Iterate in the fixed platform order so equal totals resolve
	// deterministically.
	for _, platform := range models.AllPlatforms() {
		records, ok := perPlatform[platform]
		if !ok || len(records) == 0 {
			continue
		}
		total := 0.0
		for _, rec := range records {
			total += Score(rec)
		}
		if !found || total > bestTotal {
			best, bestTotal, found = platform, total, true
		}
	}
	return best, bestTotal, found
}

// Analyze renders the fixed insight summary for the merged per-platform
// trend lists. The line set and order are part of the engine's contract:
//
//	1. record count across platforms
//	2. total engagement
//	3. top category
//	4. most engaging platform
//	5. highest-engagement record
//	6. fastest-growing record (or a fixed no-growth-data line)
func Analyze(perPlatform map[models.Platform][]models.TrendRecord) string {
	all := make([]models.TrendRecord, 0)
	platformsWithData := 0
	for _, platform := range models.AllPlatforms() {
		records := perPlatform[platform]
		if len(records) > 0 {
			platformsWithData++
		}
		all = append(all, records...)
	}

	if len(all) == 0 {
		return FallbackAnalysis
	}

	totalEngagement := 0.0
	for _, rec := range all {
		totalEngagement += Score(rec)
	}

	lines := make([]string, 0, 6)
	lines = append(lines, fmt.Sprintf("Tracking %d trends across %d platforms.", len(all), platformsWithData))
	lines = append(lines, fmt.Sprintf("Total engagement: %.0f.", totalEngagement))

	categories := CategoryCounts(all)
	lines = append(lines, fmt.Sprintf("Top category: %s (%d trends).", titleCaser.String(categories[0].Category), categories[0].Count))

	platform, platformTotal, _ := MostEngagingPlatform(perPlatform)
	lines = append(lines, fmt.Sprintf("Most engaging platform: %s (%.0f total engagement).", platform, platformTotal))

	top := RankTop(all, 1)
	lines = append(lines, fmt.Sprintf("Highest engagement: %q on %s (%.0f).", top[0].Name, top[0].Platform, Score(top[0])))

	if fastest, ok := fastestGrowing(all); ok {
		lines = append(lines, fmt.Sprintf("Fastest growing: %q on %s (%+.1f%%).", fastest.Name, fastest.Platform, *fastest.Growth))
	} else {
		lines = append(lines, "Fastest growing: no growth data yet.")
	}

	return strings.Join(lines, "\n")
}

func fastestGrowing(records []models.TrendRecord) (models.TrendRecord, bool) {
	var best models.TrendRecord
	found := false
	for _, rec := range records {
		if rec.Growth == nil {
			continue
		}
		if !found || *rec.Growth > *best.Growth {
			best, found = rec, true
		}
	}
	return best, found
}

func growthValue(r models.TrendRecord) float64 {
	if r.Growth == nil {
		// Records without a growth figure sort below any measured
		// growth, including negative ones.
		return -1e18
	}
	return *r.Growth
}

func recordKey(r models.TrendRecord) string {
	return string(r.Platform) + "|" + r.URL + "|" + r.Name
}
