package evidence

import (
	"strings"

	gocache "github.com/patrickmn/go-cache"
)

// Baseline credibility by source tier. Unknown domains get the neutral
// default; callers can seed overrides through SetDomainCredibility.
const defaultCredibility = 0.5

var tierCredibility = map[string]float64{
	// Wire services and public institutions.
	"reuters.com":    0.95,
	"apnews.com":     0.95,
	"nasa.gov":       0.95,
	"who.int":        0.9,
	"nature.com":     0.9,
	"science.org":    0.9,
	"bbc.com":        0.85,
	"bbc.co.uk":      0.85,
	"nytimes.com":    0.8,
	"washingtonpost": 0.8,
	"theguardian":    0.8,
	"economist.com":  0.8,
	// Aggregators and social sources.
	"wikipedia.org": 0.7,
	"medium.com":    0.4,
	"substack.com":  0.4,
	"reddit.com":    0.3,
	"x.com":         0.25,
	"twitter.com":   0.25,
	"facebook.com":  0.25,
	"tiktok.com":    0.2,
}

// DomainCredibility returns a [0,1] prior for how trustworthy a domain is.
// Results are cached per domain since the tier lookup walks suffixes.
func (a *Aggregator) DomainCredibility(domain string) float64 {
	domain = strings.ToLower(domain)
	if domain == "" {
		return defaultCredibility
	}
	if cached, found := a.credibility.Get(domain); found {
		return cached.(float64)
	}

	score := defaultCredibility
	if exact, ok := tierCredibility[domain]; ok {
		score = exact
	} else {
		for key, v := range tierCredibility {
			if strings.Contains(domain, key) || strings.HasSuffix(domain, "."+key) {
				score = v
				break
			}
		}
		// Government and academic TLDs get an institutional bump.
		if score == defaultCredibility && (strings.HasSuffix(domain, ".gov") || strings.HasSuffix(domain, ".edu")) {
			score = 0.85
		}
	}

	a.credibility.Set(domain, score, gocache.NoExpiration)
	return score
}

// SetDomainCredibility overrides the credibility prior for a domain.
func (a *Aggregator) SetDomainCredibility(domain string, score float64) {
	a.credibility.Set(strings.ToLower(domain), clampScore(score), gocache.NoExpiration)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
