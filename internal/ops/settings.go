package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/workspace"
)

// GetSettings returns the current editor settings.
func GetSettings(ws *workspace.Workspace) workspace.Settings {
	return ws.Settings()
}

// UpdateSettingsInput contains parameters for the UpdateSettings operation.
// Nil fields are left unchanged.
type UpdateSettingsInput struct {
	Theme        *string
	FontSize     *int
	TabSize      *int
	WordWrap     *bool
	Minimap      *bool
	AutoSave     *bool
	FormatOnSave *bool
}

// UpdateSettings validates and applies a partial settings change. The result
// is written to the snapshot and the separate settings record.
func UpdateSettings(ctx context.Context, ws *workspace.Workspace, input UpdateSettingsInput) (workspace.Settings, error) {
	if input.Theme != nil && *input.Theme != workspace.ThemeDark && *input.Theme != workspace.ThemeLight {
		return workspace.Settings{}, errors.NewInvalidRequest("theme must be dark or light")
	}
	if input.FontSize != nil && (*input.FontSize < MinFontSize || *input.FontSize > MaxFontSize) {
		return workspace.Settings{}, errors.NewInvalidRequest(fmt.Sprintf("font size must be between %d and %d", MinFontSize, MaxFontSize))
	}
	if input.TabSize != nil && (*input.TabSize < MinTabSize || *input.TabSize > MaxTabSize) {
		return workspace.Settings{}, errors.NewInvalidRequest(fmt.Sprintf("tab size must be between %d and %d", MinTabSize, MaxTabSize))
	}

	return ws.UpdateSettings(ctx, func(s *workspace.Settings) {
		if input.Theme != nil {
			s.Theme = *input.Theme
		}
		if input.FontSize != nil {
			s.FontSize = *input.FontSize
		}
		if input.TabSize != nil {
			s.TabSize = *input.TabSize
		}
		if input.WordWrap != nil {
			s.WordWrap = *input.WordWrap
		}
		if input.Minimap != nil {
			s.Minimap = *input.Minimap
		}
		if input.AutoSave != nil {
			s.AutoSave = *input.AutoSave
		}
		if input.FormatOnSave != nil {
			s.FormatOnSave = *input.FormatOnSave
		}
	})
}
