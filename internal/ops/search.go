package ops

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/tree"
	"github.com/hpungsan/harbor/internal/workspace"
)

// Search limits
const (
	MaxQueryLength  = 200
	MaxSnippetChars = 300
	snippetContext  = 60
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Pattern string // doublestar glob over node paths; default "**"
	Query   string // optional case-insensitive text searched in file content
	Type    string // optional: "file" or "folder"
	Limit   int    // default: 50, max: 500
	Offset  int
}

// SearchResultItem is one match.
type SearchResultItem struct {
	NodeInfo
	// Snippet is HTML-safe: file content is escaped; only <b>...</b>
	// highlight tags are present. Empty when no Query was given.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items   []SearchResultItem `json:"items" yaml:"items"`
	Total   int                `json:"total" yaml:"total"`
	HasMore bool               `json:"has_more" yaml:"has_more"`
}

// Search matches node paths against a glob and, optionally, file content
// against a query. Results are in tree order.
func Search(ws *workspace.Workspace, input SearchInput) (*SearchOutput, error) {
	pattern := strings.TrimSpace(input.Pattern)
	query := strings.TrimSpace(input.Query)
	if pattern == "" && query == "" {
		return nil, errors.NewInvalidRequest("pattern or query is required")
	}
	if pattern == "" {
		pattern = "**"
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}

	var kind tree.Kind
	if input.Type != "" {
		k, ok := tree.ParseKind(input.Type)
		if !ok {
			return nil, errors.NewInvalidRequest("type must be file or folder")
		}
		kind = k
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	offset := max(input.Offset, 0)

	matches, err := tree.Glob(ws.Files(), pattern)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid pattern %q", pattern))
	}

	var items []SearchResultItem
	for _, m := range matches {
		if kind != "" && m.Node.Kind() != kind {
			continue
		}
		item := SearchResultItem{NodeInfo: describe(m.Path, m.Node)}
		if query != "" {
			file, ok := m.Node.(*tree.File)
			if !ok {
				continue
			}
			snippet, found := findSnippet(file.Text(), query)
			if !found {
				continue
			}
			item.Snippet = truncateSnippet(snippet, MaxSnippetChars)
		}
		items = append(items, item)
	}

	total := len(items)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	page := items[offset:end]
	if page == nil {
		page = []SearchResultItem{}
	}

	return &SearchOutput{
		Items:   page,
		Total:   total,
		HasMore: end < total,
	}, nil
}

// findSnippet locates query (case-insensitively) in content and returns the
// surrounding text, escaped, with the match wrapped in <b> tags.
func findSnippet(content, query string) (string, bool) {
	idx := indexFold(content, query)
	if idx < 0 {
		return "", false
	}
	end := idx + len(query)

	start := max(idx-snippetContext, 0)
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	stop := min(end+snippetContext, len(content))
	for stop < len(content) && !utf8.RuneStart(content[stop]) {
		stop++
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(html.EscapeString(flattenSpace(content[start:idx])))
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(content[idx:end]))
	b.WriteString("</b>")
	b.WriteString(html.EscapeString(flattenSpace(content[end:stop])))
	return b.String(), true
}

// indexFold is a case-insensitive strings.Index for ASCII-compatible text.
// It returns a byte offset into s.
func indexFold(s, substr string) int {
	if substr == "" {
		return 0
	}
	ls, lsub := strings.ToLower(s), strings.ToLower(substr)
	if len(ls) != len(s) || len(lsub) != len(substr) {
		// Lowercasing changed byte lengths; offsets would not line up.
		return strings.Index(s, substr)
	}
	return strings.Index(ls, lsub)
}

func flattenSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateSnippet truncates a snippet to approximately maxChars while:
// 1. Preserving valid UTF-8 (never splits multi-byte runes)
// 2. Preserving markup integrity (closes any open <b> tags)
// 3. Preferring word boundaries when possible
func truncateSnippet(s string, maxChars int) string {
	if maxChars <= 0 {
		return "..."
	}
	if len(s) <= maxChars {
		return s
	}

	truncateAt := maxChars
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	if truncateAt == 0 {
		return "..."
	}
	truncated := s[:truncateAt]

	// Drop a partial tag or entity at the cut.
	if lastLT := strings.LastIndex(truncated, "<"); lastLT != -1 && !strings.Contains(truncated[lastLT:], ">") {
		truncated = truncated[:lastLT]
	}
	if lastAmp := strings.LastIndex(truncated, "&"); lastAmp != -1 && !strings.Contains(truncated[lastAmp:], ";") {
		truncated = truncated[:lastAmp]
	}

	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > truncateAt/2 {
		truncated = truncated[:lastSpace]
	}

	for range strings.Count(truncated, "<b>") - strings.Count(truncated, "</b>") {
		truncated += "</b>"
	}
	return truncated + "..."
}
