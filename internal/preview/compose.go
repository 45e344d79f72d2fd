package preview

import (
	"strings"

	"github.com/hpungsan/harbor/internal/tree"
)

// Placeholder is the body used when the workspace has no HTML file.
const Placeholder = "<div>No HTML file found</div>"

// ContentSecurityPolicy is declared in the document and sent as a header when
// the document is served.
const ContentSecurityPolicy = "default-src 'self' 'unsafe-inline' 'unsafe-eval' data: blob:; " +
	"script-src 'self' 'unsafe-inline' 'unsafe-eval'; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data: blob: https:; " +
	"font-src 'self' data: https:;"

// Sources holds the raw inputs for one preview.
type Sources struct {
	HTML string
	CSS  string
	JS   string

	// Paths of the files the sources came from; empty when none was found.
	HTMLPath string
	CSSPath  string
	JSPath   string
}

// Select picks the first .html/.htm, .css and .js/.jsx file in pre-order.
// A missing HTML file yields Placeholder; missing CSS or JS yields "".
func Select(f tree.Forest) Sources {
	var s Sources
	var haveHTML, haveCSS, haveJS bool
	_ = tree.Walk(f, func(path string, n tree.Node) error {
		file, ok := n.(*tree.File)
		if !ok {
			return nil
		}
		switch tree.Ext(file.Name) {
		case "html", "htm":
			if !haveHTML {
				s.HTML, s.HTMLPath, haveHTML = file.Text(), path, true
			}
		case "css":
			if !haveCSS {
				s.CSS, s.CSSPath, haveCSS = file.Text(), path, true
			}
		case "js", "jsx":
			if !haveJS {
				s.JS, s.JSPath, haveJS = file.Text(), path, true
			}
		}
		return nil
	})
	if !haveHTML {
		s.HTML = Placeholder
	}
	return s
}

const consoleBridge = `
        // Capture console logs and send to parent
        const originalLog = console.log;
        const originalError = console.error;
        const originalWarn = console.warn;

        console.log = function(...args) {
            window.parent.postMessage({ type: 'console', level: 'log', args: args.map(arg => String(arg)) }, '*');
            originalLog.apply(console, args);
        };

        console.error = function(...args) {
            window.parent.postMessage({ type: 'console', level: 'error', args: args.map(arg => String(arg)) }, '*');
            originalError.apply(console, args);
        };

        console.warn = function(...args) {
            window.parent.postMessage({ type: 'console', level: 'warn', args: args.map(arg => String(arg)) }, '*');
            originalWarn.apply(console, args);
        };

        // Handle errors
        window.addEventListener('error', (event) => {
            window.parent.postMessage({
                type: 'console',
                level: 'error',
                args: [` + "`Error: ${event.message} at line ${event.lineno}`" + `]
            }, '*');
        });
`

// BridgeMarker identifies the console bridge inside a composed document.
const BridgeMarker = "// Capture console logs and send to parent"

// Compose sanitizes the three sources and assembles the preview document.
// The console bridge always precedes the user script.
func Compose(html, css, js string) string {
	var b strings.Builder
	b.Grow(len(html) + len(css) + len(js) + 2048)

	b.WriteString("\n<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("    <meta charset=\"UTF-8\">\n")
	b.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("    <meta http-equiv=\"Content-Security-Policy\" content=\"")
	b.WriteString(ContentSecurityPolicy)
	b.WriteString("\">\n")
	b.WriteString("    <title>Preview</title>\n")
	b.WriteString("    <style>\n        body { margin: 0; padding: 16px; font-family: system-ui, -apple-system, sans-serif; }\n        ")
	b.WriteString(SanitizeCSS(css))
	b.WriteString("\n    </style>\n</head>\n<body>\n    ")
	b.WriteString(SanitizeHTML(html))
	b.WriteString("\n    <script>")
	b.WriteString(consoleBridge)
	b.WriteString("        ")
	b.WriteString(GuardScript(js))
	b.WriteString("\n    </script>\n</body>\n</html>")
	return b.String()
}

// ComposeSources is Compose over a Sources value.
func ComposeSources(s Sources) string {
	return Compose(s.HTML, s.CSS, s.JS)
}
