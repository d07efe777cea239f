package audit

import (
	"strings"

	"github.com/mssola/useragent"
)

// DeviceSummary turns a User-Agent header into "Browser on OS" (e.g. "Chrome on Linux").
func DeviceSummary(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return ""
	}
	ua := useragent.New(userAgent)

	browser, _ := ua.Browser()
	if ua.Bot() {
		return strings.TrimSpace("bot " + browser)
	}

	os := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		os = ua.Platform()
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}
