package sources_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sitebeam/internal/pkg/sources"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name            string
		input           sources.Input
		expectedCat     string
		expectedNetwork string
	}{
		{
			name:        "google search referrer is organic",
			input:       sources.Input{ReferrerHost: "www.google.com", Path: "/blog/foo"},
			expectedCat: sources.CategoryOrganic,
		},
		{
			name:        "bing via utm_source is organic",
			input:       sources.Input{UTMSource: "bing", Path: "/"},
			expectedCat: sources.CategoryOrganic,
		},
		{
			name:            "facebook login redirect host is social",
			input:           sources.Input{ReferrerHost: "l.facebook.com", Path: "/"},
			expectedCat:     sources.CategorySocial,
			expectedNetwork: sources.NetworkFacebook,
		},
		{
			name:            "t.co shortener is twitter",
			input:           sources.Input{ReferrerHost: "t.co", Path: "/"},
			expectedCat:     sources.CategorySocial,
			expectedNetwork: sources.NetworkTwitter,
		},
		{
			name:            "utm_source ig is instagram",
			input:           sources.Input{UTMSource: "ig", Path: "/"},
			expectedCat:     sources.CategorySocial,
			expectedNetwork: sources.NetworkInstagram,
		},
		{
			name:            "social wins over paid medium",
			input:           sources.Input{ReferrerHost: "l.facebook.com", UTMMedium: "cpc", Path: "/"},
			expectedCat:     sources.CategorySocial,
			expectedNetwork: sources.NetworkFacebook,
		},
		{
			name:        "ppc medium is paid",
			input:       sources.Input{ReferrerHost: "partner.example.com", UTMMedium: "PPC", Path: "/"},
			expectedCat: sources.CategoryPaid,
		},
		{
			name:        "mixed-case paid-search medium is paid",
			input:       sources.Input{UTMSource: "newsletter", UTMMedium: "Paid-Search", Path: "/"},
			expectedCat: sources.CategoryPaid,
		},
		{
			name:        "gclid beats organic search host",
			input:       sources.Input{ReferrerHost: "www.google.com", Path: "/?gclid=abc123"},
			expectedCat: sources.CategoryPaid,
		},
		{
			name:        "gclsrc on absolute path",
			input:       sources.Input{Path: "https://example.com/landing?gclsrc=aw.ds"},
			expectedCat: sources.CategoryPaid,
		},
		{
			name:        "email medium",
			input:       sources.Input{UTMSource: "newsletter", UTMMedium: "email", Path: "/"},
			expectedCat: sources.CategoryEmail,
		},
		{
			name:        "no referrer and no utm is direct",
			input:       sources.Input{Path: "/pricing"},
			expectedCat: sources.CategoryDirect,
		},
		{
			name:        "unrecognized host is referral",
			input:       sources.Input{ReferrerHost: "news.ycombinator.com", Path: "/"},
			expectedCat: sources.CategoryReferral,
		},
		{
			name:        "utm source only with unknown value",
			input:       sources.Input{UTMSource: "partner-xyz", Path: "/"},
			expectedCat: sources.CategoryUnknown,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := sources.Classify(tc.input)
			assert.Equal(t, tc.expectedCat, result.Category)
			assert.Equal(t, tc.expectedNetwork, result.SocialNetwork)
			assert.Equal(t, tc.expectedCat == sources.CategoryOrganic, result.IsOrganic)
		})
	}
}

func TestClassifySocialPrecedenceOrder(t *testing.T) {
	// A host matching several networks resolves to the earliest entry
	// in the table.
	result := sources.Classify(sources.Input{ReferrerHost: "linkedin.facebook.example", Path: "/"})
	assert.Equal(t, sources.CategorySocial, result.Category)
	assert.Equal(t, sources.NetworkLinkedIn, result.SocialNetwork)
}

func TestClassifySocialNetworkOnlyWhenSocial(t *testing.T) {
	result := sources.Classify(sources.Input{ReferrerHost: "www.google.com", Path: "/"})
	assert.Equal(t, sources.CategoryOrganic, result.Category)
	assert.Empty(t, result.SocialNetwork)
}

func TestClassifyEmptyPathNoAdClickSignal(t *testing.T) {
	result := sources.Classify(sources.Input{Path: ""})
	assert.Equal(t, sources.CategoryDirect, result.Category)
}
