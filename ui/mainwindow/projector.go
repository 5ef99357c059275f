package mainwindow

import (
	"pattern-projector/internal/app"
	"pattern-projector/internal/control"
	"pattern-projector/ui/canvas"

	"fyne.io/fyne/v2"
)

// ProjectorWindow shows the projector surface. It closes only together with
// the main window.
type ProjectorWindow struct {
	fyne.Window
	canvas *canvas.SurfaceCanvas
}

// NewProjectorWindow creates the projector window sized to the configured
// output.
func NewProjectorWindow(fyneApp fyne.App, state *app.State, ctrl *control.Controller) *ProjectorWindow {
	win := fyneApp.NewWindow(appTitle + " - Projector")
	pw := &ProjectorWindow{
		Window: win,
		canvas: canvas.NewSurfaceCanvas(control.Projector, ctrl, state.RenderProjector),
	}

	cfg := state.Config()
	pw.SetContent(pw.canvas)
	pw.SetPadded(false)
	pw.SetCloseIntercept(func() {})
	if cfg.Fullscreen {
		pw.SetFullScreen(true)
	} else {
		pw.Resize(fyne.NewSize(float32(cfg.ProjectorWidth), float32(cfg.ProjectorHeight)))
	}

	state.On(app.EventRedraw, func(interface{}) {
		pw.canvas.Refresh()
	})
	return pw
}
