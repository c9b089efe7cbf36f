package category

import "strings"

// Fallback is assigned when no rule matches.
const Fallback = "general"

// Rule maps one category label to its trigger keywords. Rules are ordered:
// the first rule with any keyword present in the text wins.
type Rule struct {
	Name     string
	Keywords []string
}

// DefaultRules is the fixed ordered category table. Labels are lower-case
// by contract; more specific categories come before broader ones.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "ai", Keywords: []string{"ai", "artificial intelligence", "machine learning", "llm", "neural", "gpt", "model"}},
		{Name: "crypto", Keywords: []string{"crypto", "bitcoin", "ethereum", "blockchain", "nft", "token"}},
		{Name: "security", Keywords: []string{"security", "breach", "hack", "vulnerability", "exploit", "malware", "ransomware"}},
		{Name: "technology", Keywords: []string{"tech", "software", "hardware", "programming", "developer", "app", "startup", "code", "api"}},
		{Name: "science", Keywords: []string{"science", "research", "study", "space", "nasa", "physics", "biology", "climate"}},
		{Name: "business", Keywords: []string{"business", "market", "stock", "economy", "finance", "ipo", "revenue", "earnings"}},
		{Name: "gaming", Keywords: []string{"game", "gaming", "playstation", "xbox", "nintendo", "steam", "esports"}},
		{Name: "entertainment", Keywords: []string{"movie", "film", "music", "celebrity", "netflix", "streaming", "tv show"}},
		{Name: "sports", Keywords: []string{"sport", "football", "basketball", "soccer", "nba", "nfl", "olympics"}},
		{Name: "politics", Keywords: []string{"politics", "election", "senate", "congress", "government", "policy"}},
		{Name: "health", Keywords: []string{"health", "medical", "vaccine", "disease", "hospital", "fda"}},
	}
}

// Categorizer assigns a category label by keyword-matching title and
// description text against an ordered rule table.
type Categorizer struct {
	rules []Rule
}

// New returns a categorizer with the default rule table.
func New() *Categorizer {
	return NewWithRules(DefaultRules())
}

// NewWithRules returns a categorizer with a custom ordered rule table.
func NewWithRules(rules []Rule) *Categorizer {
	return &Categorizer{rules: rules}
}

// Categorize returns the first matching category for the given title and
// description, or Fallback when nothing matches. Matching is
// case-insensitive substring containment, so multi-word keywords work.
func (c *Categorizer) Categorize(title, description string) string {
	text := strings.ToLower(title + " " + description)
	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if containsWord(text, keyword) {
				return rule.Name
			}
		}
	}
	return Fallback
}

// containsWord reports whether keyword occurs in text on word boundaries.
// Plain substring containment would make "ai" match "maintain".
func containsWord(text, keyword string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], keyword)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(keyword)

		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
