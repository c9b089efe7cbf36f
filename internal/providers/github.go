package providers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trendpulse/internal/models"
	"trendpulse/internal/retry"
)

const (
	defaultGitHubAPIBase  = "https://api.github.com"
	defaultGitHubTrending = "https://github.com/trending"

	// trendingWindow is how far back the repository search looks.
	trendingWindow = 7 * 24 * time.Hour
)

// GitHubProvider fetches trending repositories. The primary path is the
// search API (repositories created in the last week, ordered by stars);
// when that fails it falls back to scraping the public trending page,
// which needs no token at all.
type GitHubProvider struct {
	deps        Deps
	token       string
	apiBase     string
	trendingURL string
	client      *http.Client
	policy      retry.Policy
}

type githubSearchResponse struct {
	Items []githubRepo `json:"items"`
}

type githubRepo struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	Stars       int    `json:"stargazers_count"`
	Forks       int    `json:"forks_count"`
	OpenIssues  int    `json:"open_issues_count"`
	Watchers    int    `json:"watchers_count"`
	CreatedAt   string `json:"created_at"`
	Language    string `json:"language"`
}

func NewGitHub(token string, deps Deps) *GitHubProvider {
	policy := retry.Default(IsRetryable)
	policy.MaxAttempts = 2
	return &GitHubProvider{
		deps:        deps,
		token:       token,
		apiBase:     defaultGitHubAPIBase,
		trendingURL: defaultGitHubTrending,
		client:      &http.Client{Timeout: deps.Config.Timeout},
		policy:      policy,
	}
}

func (p *GitHubProvider) Platform() models.Platform {
	return models.PlatformGitHub
}

func (p *GitHubProvider) CacheKey() string {
	return "trends:github:weekly"
}

func (p *GitHubProvider) Fetch(ctx context.Context) ([]models.TrendRecord, error) {
	return p.deps.run(ctx, p.Platform(), p.CacheKey(), p.policy, p.fetchOnce)
}

func (p *GitHubProvider) fetchOnce(ctx context.Context) ([]models.TrendRecord, error) {
	records, searchErr := p.fetchSearch(ctx)
	if searchErr == nil {
		return records, nil
	}

	// Rate-limit responses propagate so the limiter can record the
	// deadline; anything else gets one shot at the trending page.
	if IsRateLimited(searchErr) {
		return nil, searchErr
	}
	if scraped, err := p.scrapeTrending(ctx); err == nil && len(scraped) > 0 {
		return scraped, nil
	}
	return nil, searchErr
}

func (p *GitHubProvider) fetchSearch(ctx context.Context) ([]models.TrendRecord, error) {
	since := time.Now().Add(-trendingWindow).Format("2006-01-02")
	url := fmt.Sprintf("%s/search/repositories?q=created:>%s&sort=stars&order=desc&per_page=%d",
		p.apiBase, since, p.deps.Config.MaxItems)

	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	if p.token != "" {
		header.Set("Authorization", "Bearer "+p.token)
	}

	var resp githubSearchResponse
	if err := p.deps.getJSON(ctx, p.client, "github", url, header, &resp); err != nil {
		return nil, err
	}
	return p.normalize(&resp, time.Now()), nil
}

func (p *GitHubProvider) normalize(resp *githubSearchResponse, now time.Time) []models.TrendRecord {
	records := make([]models.TrendRecord, 0, len(resp.Items))
	for i, repo := range resp.Items {
		if i >= p.deps.Config.MaxItems {
			break
		}
		if repo.FullName == "" {
			continue
		}

		timestamp := now
		if t, err := time.Parse(time.RFC3339, repo.CreatedAt); err == nil {
			timestamp = t
		}

		stars := repo.Stars
		if stars < 0 {
			stars = 0
		}

		description := truncate(cleanText(repo.Description), 300)
		records = append(records, models.TrendRecord{
			Name:        repo.FullName,
			Description: description,
			URL:         repo.HTMLURL,
			Platform:    models.PlatformGitHub,
			Category:    p.deps.Categorizer.Categorize(repo.FullName+" "+repo.Language, description),
			Volume:      stars,
			Timestamp:   timestamp,
			Sentiment:   p.deps.Analyzer.Analyze(repo.FullName + " " + description),
			Growth:      p.deps.growth(models.PlatformGitHub, repo.FullName, stars),
			Engagement: map[string]int{
				"stars":    stars,
				"forks":    repo.Forks,
				"issues":   repo.OpenIssues,
				"watchers": repo.Watchers,
			},
		})
	}
	return records
}

// scrapeTrending parses the public trending page. Star counts there are
// display strings ("12,345"), and repos carry no creation timestamp, so
// scraped records use the fetch time.
func (p *GitHubProvider) scrapeTrending(ctx context.Context) ([]models.TrendRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.trendingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.deps.Config.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trending page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: "github-trending", Code: resp.StatusCode, RetryAfter: parseRetryAfter(resp)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trending page: %w", err)
	}

	now := time.Now()
	records := make([]models.TrendRecord, 0)
	doc.Find("article.Box-row").Each(func(i int, s *goquery.Selection) {
		if i >= p.deps.Config.MaxItems {
			return
		}

		repoPath := cleanText(s.Find("h2 a").First().Text())
		repoPath = strings.ReplaceAll(repoPath, " ", "")
		if repoPath == "" {
			return
		}
		repoPath = strings.TrimPrefix(repoPath, "/")

		description := truncate(cleanText(s.Find("p").First().Text()), 300)
		stars := parseStarCount(s.Find("a[href$='/stargazers']").First().Text())

		records = append(records, models.TrendRecord{
			Name:        repoPath,
			Description: description,
			URL:         "https://github.com/" + repoPath,
			Platform:    models.PlatformGitHub,
			Category:    p.deps.Categorizer.Categorize(repoPath, description),
			Volume:      stars,
			Timestamp:   now,
			Sentiment:   p.deps.Analyzer.Analyze(repoPath + " " + description),
			Growth:      p.deps.growth(models.PlatformGitHub, repoPath, stars),
			Engagement: map[string]int{
				"stars": stars,
			},
		})
	})

	return records, nil
}

func parseStarCount(text string) int {
	text = strings.ReplaceAll(cleanText(text), ",", "")
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
