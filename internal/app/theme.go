package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// ProjectorTheme is the application theme. The primary color matches the
// projection boundary drawn on the preview.
type ProjectorTheme struct{}

var _ fyne.Theme = (*ProjectorTheme)(nil)

func (t *ProjectorTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x03, G: 0xFC, B: 0xE3, A: 0xFF}
	case theme.ColorNameFocus:
		return color.NRGBA{R: 0x03, G: 0xFC, B: 0xE3, A: 0x60}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *ProjectorTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *ProjectorTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *ProjectorTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameInputBorder {
		return 2
	}
	return theme.DefaultTheme().Size(name)
}
