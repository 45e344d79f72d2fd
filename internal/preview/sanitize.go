// Package preview assembles the live-preview document from the workspace's
// first HTML, CSS and JS files and manages handles to published documents.
//
// The sanitizers here are plain regular-expression strips. They are NOT a
// security boundary: obfuscated, unquoted or multi-line injection variants
// pass straight through. Do not reuse them to sandbox untrusted input.
package preview

import (
	"regexp"
)

var (
	scriptBlock  = regexp.MustCompile(`(?i)<script[^>]*>[\s\S]*?</script>`)
	eventHandler = regexp.MustCompile(`(?i)on\w+="[^"]*"`)
	jsScheme     = regexp.MustCompile(`(?i)javascript:`)

	cssExpression = regexp.MustCompile(`(?i)expression\s*\(`)
	cssImport     = regexp.MustCompile(`(?i)@import`)
)

// SanitizeHTML drops <script> blocks, double-quoted on*="..." attributes and
// javascript: schemes. It never fails.
func SanitizeHTML(html string) string {
	html = scriptBlock.ReplaceAllString(html, "")
	html = eventHandler.ReplaceAllString(html, "")
	return jsScheme.ReplaceAllString(html, "")
}

// SanitizeCSS drops expression( openers, javascript: schemes and the @import
// keyword. The rest of an @import statement is left in place.
func SanitizeCSS(css string) string {
	css = cssExpression.ReplaceAllString(css, "")
	css = jsScheme.ReplaceAllString(css, "")
	return cssImport.ReplaceAllString(css, "")
}

// GuardScript wraps js so a thrown exception is reported through
// console.error instead of escaping.
func GuardScript(js string) string {
	return "\n    try {\n      " + js + "\n    } catch (error) {\n      console.error('JavaScript Error:', error.message);\n    }\n  "
}
