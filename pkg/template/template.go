// Package template provides {{key}} placeholder substitution for
// string-valued action settings (email subject and body, webhook URL,
// headers, and JSON body).
package template

import (
	"regexp"
	"strings"
	"time"

	"github.com/nudgekit/nudgekit/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// Render substitutes placeholders from the visitor context. Two namespaces
// are resolved: identifiedUser.* (nested attribute access) and flat
// localStorage-mapped keys, plus the built-ins visitorId, siteId, and
// timestamp. Unresolved placeholders are left verbatim, they are not an
// error: workflow authors see the missing key in the delivered payload.
func Render(input string, visitorCtx *models.VisitorContext) string {
	if input == "" || !strings.Contains(input, "{{") {
		return input
	}

	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]

		if value, ok := resolve(key, visitorCtx); ok {
			return value
		}

		return match
	})
}

// RenderMap substitutes placeholders in every value of a string map, leaving
// keys untouched.
func RenderMap(input map[string]string, visitorCtx *models.VisitorContext) map[string]string {
	if len(input) == 0 {
		return input
	}

	rendered := make(map[string]string, len(input))

	for k, v := range input {
		rendered[k] = Render(v, visitorCtx)
	}

	return rendered
}

func resolve(key string, visitorCtx *models.VisitorContext) (string, bool) {
	switch key {
	case "visitorId":
		return visitorCtx.VisitorID, true
	case "siteId":
		return visitorCtx.SiteID, true
	case "timestamp":
		return time.Now().UTC().Format(time.RFC3339), true
	}

	const userPrefix = "identifiedUser."
	if strings.HasPrefix(key, userPrefix) {
		return visitorCtx.UserAttribute(strings.TrimPrefix(key, userPrefix))
	}

	value, ok := visitorCtx.LocalStorage[key]

	return value, ok
}
