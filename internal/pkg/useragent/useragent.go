// Package useragent derives device, OS and browser labels from raw
// User-Agent header values. It deliberately stays heuristic: traffic
// reports only need coarse buckets, not full device-model detection.
package useragent

import (
	"strings"

	"go.elara.ws/pcre"
)

// Device types
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceUnknown = "unknown"
)

// Operating systems
const (
	OSWindows = "windows"
	OSMacOS   = "macos"
	OSAndroid = "android"
	OSIOS     = "ios"
	OSLinux   = "linux"
	OSUnknown = "unknown"
)

// Browsers
const (
	BrowserEdge    = "edge"
	BrowserChrome  = "chrome"
	BrowserSafari  = "safari"
	BrowserFirefox = "firefox"
	BrowserUnknown = "unknown"
)

// Result holds the parsed fields for a single User-Agent string.
// Every field is always populated; unrecognized input falls back to
// the "unknown" labels rather than an error.
type Result struct {
	Device  string
	OS      string
	Browser string
}

var androidMobileRegex = pcre.MustCompile(`android.*mobile`)

// Parse classifies a raw User-Agent header. The checks run against the
// lowercased string and the first match wins, so ordering matters:
// phone markers before tablet markers, and "edg/" before "chrome/"
// since Edge UAs also carry the Chrome token.
func Parse(ua string) Result {
	lower := strings.ToLower(ua)

	return Result{
		Device:  parseDevice(lower),
		OS:      parseOS(lower),
		Browser: parseBrowser(lower),
	}
}

func parseDevice(lower string) string {
	switch {
	case strings.Contains(lower, "mobile"),
		strings.Contains(lower, "iphone"),
		androidMobileRegex.MatchString(lower):
		return DeviceMobile
	case strings.Contains(lower, "ipad"), strings.Contains(lower, "tablet"):
		return DeviceTablet
	case lower != "":
		// Anything we cannot place is most likely a desktop browser.
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}

func parseOS(lower string) string {
	switch {
	case strings.Contains(lower, "windows"):
		return OSWindows
	case strings.Contains(lower, "mac os"), strings.Contains(lower, "macintosh"):
		return OSMacOS
	case strings.Contains(lower, "android"):
		return OSAndroid
	case strings.Contains(lower, "ios"),
		strings.Contains(lower, "iphone"),
		strings.Contains(lower, "ipad"):
		return OSIOS
	case strings.Contains(lower, "linux"):
		return OSLinux
	default:
		return OSUnknown
	}
}

func parseBrowser(lower string) string {
	switch {
	case strings.Contains(lower, "edg/"):
		return BrowserEdge
	case strings.Contains(lower, "chrome/"):
		return BrowserChrome
	case strings.Contains(lower, "safari") && !strings.Contains(lower, "chrome"):
		return BrowserSafari
	case strings.Contains(lower, "firefox"):
		return BrowserFirefox
	default:
		return BrowserUnknown
	}
}
