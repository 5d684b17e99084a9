// Package sources assigns a traffic-source category to a page view
// based on its referrer host and UTM parameters. The detector tables
// live in an embedded YAML database so the known hosts and tokens can
// be extended without touching the resolution logic.
package sources

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Traffic-source categories
const (
	CategoryDirect   = "direct"
	CategoryOrganic  = "organic"
	CategorySocial   = "social"
	CategoryReferral = "referral"
	CategoryPaid     = "paid"
	CategoryEmail    = "email"
	CategoryUnknown  = "unknown"
)

// Social networks
const (
	NetworkLinkedIn  = "linkedin"
	NetworkFacebook  = "facebook"
	NetworkInstagram = "instagram"
	NetworkTwitter   = "twitter"
	NetworkYouTube   = "youtube"
	NetworkPinterest = "pinterest"
	NetworkReddit    = "reddit"
)

//go:embed rules.yml
var rulesFile []byte

type detector struct {
	Name       string   `yaml:"name"`
	Hosts      []string `yaml:"hosts"`
	UTMSources []string `yaml:"utm_sources"`
}

type ruleDB struct {
	Search           detector   `yaml:"search"`
	Social           []detector `yaml:"social"`
	PaidMediumTokens []string   `yaml:"paid_medium_tokens"`
	AdClickParams    []string   `yaml:"ad_click_params"`
}

var (
	rules     *ruleDB
	rulesOnce sync.Once
)

func getRules() *ruleDB {
	rulesOnce.Do(func() {
		db := &ruleDB{}
		if err := yaml.Unmarshal(rulesFile, db); err != nil {
			panic(fmt.Sprintf("sources: failed to load embedded rules: %v", err))
		}
		rules = db
	})
	return rules
}

// matches reports whether the detector fires for the given lowercased
// host and utm_source. Hosts match by substring, utm_source exactly.
func (d *detector) matches(host, utmSource string) bool {
	for _, h := range d.Hosts {
		if host != "" && strings.Contains(host, h) {
			return true
		}
	}
	for _, s := range d.UTMSources {
		if utmSource == s {
			return true
		}
	}
	return false
}

// Input carries the already-extracted attribution fields of one page view.
type Input struct {
	ReferrerHost string
	UTMSource    string
	UTMMedium    string
	Path         string
}

// Result is the classification outcome. SocialNetwork is non-empty
// exactly when Category is social, and IsOrganic mirrors
// Category == organic.
type Result struct {
	Category      string
	SocialNetwork string
	IsOrganic     bool
}

// Classify resolves the traffic-source category for one page view.
//
// Several detectors can fire at once (a Google Ads click looks like
// search traffic and paid traffic at the same time), so resolution is
// an ordered rule list where the first matching rule wins:
// social, paid, organic search, email, direct, referral, unknown.
func Classify(input Input) Result {
	db := getRules()

	host := strings.ToLower(strings.TrimSpace(input.ReferrerHost))
	utmSource := strings.ToLower(strings.TrimSpace(input.UTMSource))
	utmMedium := strings.ToLower(strings.TrimSpace(input.UTMMedium))

	network := resolveSocialNetwork(db, host, utmSource)

	isSearch := db.Search.matches(host, utmSource)
	isPaid := hasPaidMedium(db, utmMedium) || hasAdClickParam(db, input.Path)
	isDirect := host == "" && utmSource == ""

	rules := []struct {
		matches  bool
		category string
	}{
		{network != "", CategorySocial},
		{isPaid, CategoryPaid},
		{isSearch, CategoryOrganic},
		{utmMedium == "email", CategoryEmail},
		{isDirect, CategoryDirect},
		{host != "", CategoryReferral},
	}

	category := CategoryUnknown
	for _, rule := range rules {
		if rule.matches {
			category = rule.category
			break
		}
	}

	result := Result{
		Category:  category,
		IsOrganic: category == CategoryOrganic,
	}
	if category == CategorySocial {
		result.SocialNetwork = network
	}
	return result
}

// resolveSocialNetwork walks the social detectors in table order, so
// the precedence between overlapping networks lives in rules.yml.
func resolveSocialNetwork(db *ruleDB, host, utmSource string) string {
	for i := range db.Social {
		if db.Social[i].matches(host, utmSource) {
			return db.Social[i].Name
		}
	}
	return ""
}

func hasPaidMedium(db *ruleDB, utmMedium string) bool {
	if utmMedium == "" {
		return false
	}
	for _, token := range db.PaidMediumTokens {
		if strings.Contains(utmMedium, token) {
			return true
		}
	}
	return false
}

// hasAdClickParam looks for ad-click identifiers (gclid, gclsrc) in the
// query string of the landing path. Paths arrive as absolute URLs,
// rooted paths or bare fragments; parse failures just mean no signal.
func hasAdClickParam(db *ruleDB, path string) bool {
	if path == "" {
		return false
	}

	raw := path
	if strings.HasPrefix(raw, "/") {
		raw = "http://localhost" + raw
	} else if !strings.Contains(raw, "://") {
		raw = "http://localhost/" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	query := u.Query()
	for _, param := range db.AdClickParams {
		if query.Has(param) {
			return true
		}
	}
	return false
}
