package scoring

import (
	"strings"
	"testing"
	"time"

	"trendpulse/internal/models"
)

func growthOf(v float64) *float64 { return &v }

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		record   models.TrendRecord
		expected float64
	}{
		{
			name: "volume engagement and growth",
			record: models.TrendRecord{
				Volume:     1000,
				Engagement: map[string]int{"likes": 50, "comments": 10},
				Growth:     growthOf(20),
			},
			expected: 1260,
		},
		{
			name: "no growth term when growth absent",
			record: models.TrendRecord{
				Volume:     1000,
				Engagement: map[string]int{"likes": 50, "comments": 10},
			},
			expected: 1060,
		},
		{
			name:     "bare volume",
			record:   models.TrendRecord{Volume: 42},
			expected: 42,
		},
		{
			name: "negative growth reduces the score",
			record: models.TrendRecord{
				Volume: 200,
				Growth: growthOf(-50),
			},
			expected: 100,
		},
		{
			name:     "empty record",
			record:   models.TrendRecord{},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.record); got != tt.expected {
				t.Errorf("Score() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRankTop_SortsByScoreDescending(t *testing.T) {
	records := []models.TrendRecord{
		{Name: "small", Volume: 100},
		{Name: "big", Volume: 800},
		{Name: "medium", Volume: 500},
	}

	ranked := RankTop(records, 0)

	want := []string{"big", "medium", "small"}
	for i, name := range want {
		if ranked[i].Name != name {
			t.Errorf("RankTop()[%d] = %q, want %q", i, ranked[i].Name, name)
		}
	}
	// Input order unchanged.
	if records[0].Name != "small" {
		t.Error("RankTop() must not mutate its input")
	}
}

func TestRankTop_TieBreakChain(t *testing.T) {
	now := time.Now()
	records := []models.TrendRecord{
		{Name: "older-no-growth", Volume: 100, Timestamp: now.Add(-2 * time.Hour)},
		{Name: "newer-no-growth", Volume: 100, Timestamp: now},
		{Name: "with-growth", Volume: 100, Growth: growthOf(0), Timestamp: now.Add(-3 * time.Hour)},
	}

	ranked := RankTop(records, 0)

	// Equal scores: growth (even zero) beats no growth, then recency.
	if ranked[0].Name != "with-growth" {
		t.Errorf("RankTop()[0] = %q, want with-growth (growth tie-break)", ranked[0].Name)
	}
	if ranked[1].Name != "newer-no-growth" {
		t.Errorf("RankTop()[1] = %q, want newer-no-growth (timestamp tie-break)", ranked[1].Name)
	}
}

func TestRankTop_Limit(t *testing.T) {
	records := make([]models.TrendRecord, 20)
	for i := range records {
		records[i] = models.TrendRecord{Name: "r", Volume: i}
	}

	if got := len(RankTop(records, 5)); got != 5 {
		t.Errorf("RankTop() returned %d records, want 5", got)
	}
}

func TestRankEmerging_ExcludesTop(t *testing.T) {
	records := []models.TrendRecord{
		{Name: "top", URL: "u1", Volume: 1000, Growth: growthOf(5)},
		{Name: "fast", URL: "u2", Volume: 10, Growth: growthOf(90)},
		{Name: "faster", URL: "u3", Volume: 5, Growth: growthOf(120)},
		{Name: "flat", URL: "u4", Volume: 50},
	}

	top := RankTop(records, 1)
	if top[0].Name != "top" {
		t.Fatalf("RankTop()[0] = %q, want top", top[0].Name)
	}

	emerging := RankEmerging(records, top, 0)

	for _, rec := range emerging {
		if rec.Name == "top" {
			t.Error("RankEmerging() must exclude records already in the top list")
		}
	}
	if emerging[0].Name != "faster" || emerging[1].Name != "fast" {
		t.Errorf("RankEmerging() order = [%q %q ...], want [faster fast ...]", emerging[0].Name, emerging[1].Name)
	}
	// No-growth records trail everything with measured growth.
	if emerging[len(emerging)-1].Name != "flat" {
		t.Errorf("RankEmerging() last = %q, want flat", emerging[len(emerging)-1].Name)
	}
}

func TestCategoryCounts(t *testing.T) {
	records := []models.TrendRecord{
		{Category: "ai"},
		{Category: "ai"},
		{Category: "crypto"},
		{Category: "general"},
		{Category: "ai"},
		{Category: "crypto"},
	}

	counts := CategoryCounts(records)

	if len(counts) != 3 {
		t.Fatalf("CategoryCounts() returned %d categories, want 3", len(counts))
	}
	if counts[0].Category != "ai" || counts[0].Count != 3 {
		t.Errorf("CategoryCounts()[0] = %+v, want ai/3", counts[0])
	}
	if counts[1].Category != "crypto" || counts[1].Count != 2 {
		t.Errorf("CategoryCounts()[1] = %+v, want crypto/2", counts[1])
	}
}

func TestMostEngagingPlatform(t *testing.T) {
	perPlatform := map[models.Platform][]models.TrendRecord{
		models.PlatformReddit: {
			{Volume: 100}, {Volume: 200},
		},
		models.PlatformGitHub: {
			{Volume: 1000},
		},
		models.PlatformNews: {},
	}

	platform, total, ok := MostEngagingPlatform(perPlatform)
	if !ok {
		t.Fatal("MostEngagingPlatform() ok = false, want true")
	}
	if platform != models.PlatformGitHub {
		t.Errorf("MostEngagingPlatform() = %v, want github", platform)
	}
	if total != 1000 {
		t.Errorf("MostEngagingPlatform() total = %v, want 1000", total)
	}
}

func TestMostEngagingPlatform_Empty(t *testing.T) {
	if _, _, ok := MostEngagingPlatform(map[models.Platform][]models.TrendRecord{}); ok {
		t.Error("MostEngagingPlatform() on empty input should report ok = false")
	}
}

func TestAnalyze_LineStructure(t *testing.T) {
	perPlatform := map[models.Platform][]models.TrendRecord{
		models.PlatformReddit: {
			{Name: "hot post", Platform: models.PlatformReddit, Category: "ai", Volume: 500, Growth: growthOf(25)},
			{Name: "other post", Platform: models.PlatformReddit, Category: "general", Volume: 100},
		},
		models.PlatformGitHub: {
			{Name: "acme/tool", Platform: models.PlatformGitHub, Category: "ai", Volume: 50},
		},
	}

	analysis := Analyze(perPlatform)
	lines := strings.Split(analysis, "\n")

	if len(lines) != 6 {
		t.Fatalf("Analyze() produced %d lines, want 6:\n%s", len(lines), analysis)
	}

	checks := []struct {
		idx      int
		contains string
	}{
		{0, "Tracking 3 trends across 2 platforms."},
		{1, "Total engagement:"},
		{2, "Top category: Ai (2 trends)."},
		{3, "Most engaging platform: reddit"},
		{4, `Highest engagement: "hot post" on reddit`},
		{5, `Fastest growing: "hot post" on reddit (+25.0%).`},
	}
	for _, check := range checks {
		if !strings.Contains(lines[check.idx], check.contains) {
			t.Errorf("Analyze() line %d = %q, want it to contain %q", check.idx, lines[check.idx], check.contains)
		}
	}
}

func TestAnalyze_NoGrowthData(t *testing.T) {
	perPlatform := map[models.Platform][]models.TrendRecord{
		models.PlatformNews: {
			{Name: "headline", Platform: models.PlatformNews, Category: "general"},
		},
	}

	lines := strings.Split(Analyze(perPlatform), "\n")
	if len(lines) != 6 {
		t.Fatalf("Analyze() produced %d lines, want 6", len(lines))
	}
	if lines[5] != "Fastest growing: no growth data yet." {
		t.Errorf("Analyze() line 5 = %q", lines[5])
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	if got := Analyze(map[models.Platform][]models.TrendRecord{}); got != FallbackAnalysis {
		t.Errorf("Analyze() on empty input = %q, want the fixed fallback string", got)
	}
}
