// Package device turns a User-Agent header into a short human-readable
// description of the capture device.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns "<browser> <major> on <os>", with "(mobile)" appended
// for handheld devices.
func ParseUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return unknownDevice
	}

	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		name = "Unknown Browser"
	}
	if major, _, _ := strings.Cut(version, "."); major != "" {
		name += " " + major
	}

	os := ua.OS()
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}

	desc := name + " on " + os
	if ua.Mobile() {
		desc += " (mobile)"
	}
	return strings.Join(strings.Fields(desc), " ")
}

// IsBot reports whether the User-Agent identifies an automated client.
func IsBot(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	return useragent.New(raw).Bot()
}
