package ops

import (
	"context"

	"github.com/hpungsan/harbor/internal/workspace"
)

// TabSummary is an open tab without its buffer.
type TabSummary struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Language string `json:"language" yaml:"language"`
	FilePath string `json:"file_path" yaml:"file_path"`
	Unsaved  bool   `json:"is_unsaved" yaml:"is_unsaved"`
	Active   bool   `json:"active" yaml:"active"`
}

func summarize(tab workspace.Tab, activeID string) TabSummary {
	return TabSummary{
		ID:       tab.ID,
		Name:     tab.Name,
		Language: tab.Language,
		FilePath: tab.FilePath,
		Unsaved:  tab.Unsaved,
		Active:   tab.ID == activeID,
	}
}

// OpenTabInput contains parameters for the OpenTab operation.
type OpenTabInput struct {
	ID   string
	Path string
}

// OpenTabOutput contains the result of the OpenTab operation.
type OpenTabOutput struct {
	Applied bool        `json:"applied"`
	Tab     *TabSummary `json:"tab,omitempty"`
}

// OpenTab opens a file in a tab and activates it. Opening an already open
// file only activates its tab. Folders are not opened.
func OpenTab(ctx context.Context, ws *workspace.Workspace, input OpenTabInput) (*OpenTabOutput, error) {
	id, err := resolve(ws.Files(), input.ID, input.Path)
	if err != nil {
		return nil, err
	}

	tab, applied, err := ws.OpenFile(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &OpenTabOutput{Applied: applied}
	if applied {
		s := summarize(tab, tab.ID)
		out.Tab = &s
	}
	return out, nil
}

// CloseTabInput contains parameters for the CloseTab operation.
type CloseTabInput struct {
	ID   string
	Path string
}

// CloseTabOutput contains the result of the CloseTab operation.
type CloseTabOutput struct {
	ID          string `json:"id"`
	Applied     bool   `json:"applied"`
	ActiveTabID string `json:"active_tab_id"`
}

// CloseTab closes a tab. Closing the active tab activates the last remaining
// one.
func CloseTab(ctx context.Context, ws *workspace.Workspace, input CloseTabInput) (*CloseTabOutput, error) {
	id, err := resolve(ws.Files(), input.ID, input.Path)
	if err != nil {
		return nil, err
	}

	applied, err := ws.CloseTab(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &CloseTabOutput{ID: id, Applied: applied}
	if active, ok := ws.ActiveTab(); ok {
		out.ActiveTabID = active.ID
	}
	return out, nil
}

// ListTabsOutput contains the result of the ListTabs operation.
type ListTabsOutput struct {
	Tabs        []TabSummary `json:"tabs" yaml:"tabs"`
	ActiveTabID string       `json:"active_tab_id" yaml:"active_tab_id"`
}

// ListTabs lists open tabs in order.
func ListTabs(ws *workspace.Workspace) *ListTabsOutput {
	snap := ws.Snapshot()
	out := &ListTabsOutput{
		Tabs:        make([]TabSummary, 0, len(snap.OpenTabs)),
		ActiveTabID: snap.ActiveTabID,
	}
	for _, tab := range snap.OpenTabs {
		out.Tabs = append(out.Tabs, summarize(tab, snap.ActiveTabID))
	}
	return out
}
