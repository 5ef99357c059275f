// Package mainwindow provides the main application window and the projector
// window.
package mainwindow

import (
	"fmt"
	"log"
	"path/filepath"

	"pattern-projector/internal/app"
	"pattern-projector/internal/config"
	"pattern-projector/internal/control"
	"pattern-projector/internal/effects"
	srcimage "pattern-projector/internal/image"
	"pattern-projector/internal/version"
	"pattern-projector/ui/canvas"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const appTitle = "Pattern Projector"

// pageNamer is implemented by documents that can label their pages.
type pageNamer interface {
	PageName(page int) string
}

// MainWindow is the primary application window: effect and placement
// controls, the page list and the preview.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *config.Prefs
	ctrl      *control.Controller
	preview   *canvas.SurfaceCanvas
	pages     *widget.List
	statusBar *widget.Label

	hue, saturation, value, thickness *widget.Slider
	mirror, invert, invertBoth        *widget.Check
}

// New creates the main window. ctrl is shared with the projector window.
func New(fyneApp fyne.App, state *app.State, prefs *config.Prefs, ctrl *control.Controller) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  prefs,
		ctrl:   ctrl,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.SetMaster()
	mw.Resize(fyne.NewSize(1100, 700))

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.preview = canvas.NewSurfaceCanvas(control.Preview, mw.ctrl, mw.state.RenderPreview)
	mw.preview.OnResize(func(w, h int) {
		mw.state.SetPreviewSize(float64(w), float64(h))
	})

	mw.statusBar = widget.NewLabel("Open a pattern to begin")

	mw.pages = widget.NewList(
		mw.state.PageCount,
		func() fyne.CanvasObject { return widget.NewLabel("Page 000") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(mw.pageName(id))
		},
	)
	mw.pages.OnSelected = func(id widget.ListItemID) {
		if id == mw.state.Page() && mw.state.Source() != nil {
			return
		}
		if err := mw.state.LoadPage(id, true); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}

	controls := container.NewVBox(
		mw.createFileControls(),
		widget.NewSeparator(),
		mw.createEffectControls(),
		widget.NewSeparator(),
		mw.createPlacementControls(),
	)

	sidePanel := container.NewBorder(controls, nil, nil, nil, mw.pages)

	split := container.NewHSplit(sidePanel, mw.preview)
	split.SetOffset(0.25)

	content := container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		split,
	)

	mw.SetContent(content)
}

func (mw *MainWindow) createFileControls() fyne.CanvasObject {
	return container.NewHBox(
		widget.NewButton("Open File...", mw.onOpenFile),
		widget.NewButton("Open Folder...", mw.onOpenFolder),
	)
}

func (mw *MainWindow) createEffectControls() fyne.CanvasObject {
	mw.hue = widget.NewSlider(0, 179)
	mw.hue.Step = 1
	mw.hue.OnChanged = func(v float64) { mw.state.SetHue(v) }

	mw.saturation = multiplierSlider(mw.state.SetSaturation)
	mw.value = multiplierSlider(mw.state.SetValue)

	mw.thickness = widget.NewSlider(0, 5)
	mw.thickness.Step = 1
	mw.thickness.OnChanged = func(v float64) { mw.state.SetLineGrowth(int(v)) }

	mw.invert = widget.NewCheck("Invert", func(bool) { mw.applyInvert() })
	mw.invertBoth = widget.NewCheck("Invert Both", func(on bool) {
		mw.prefs.SetBool(config.PrefInvertBoth, on)
		mw.applyInvert()
	})
	mw.invertBoth.SetChecked(mw.prefs.Bool(config.PrefInvertBoth, false))

	reset := widget.NewButton("Reset Colors", mw.onResetColors)

	return container.NewVBox(
		widget.NewLabel("Hue"), mw.hue,
		widget.NewLabel("Saturation"), mw.saturation,
		widget.NewLabel("Value"), mw.value,
		widget.NewLabel("Line Thickness"), mw.thickness,
		container.NewHBox(mw.invert, mw.invertBoth),
		reset,
	)
}

// multiplierSlider maps a -100..100 slider to a multiplier.
func multiplierSlider(set func(float64)) *widget.Slider {
	s := widget.NewSlider(-100, 100)
	s.Step = 1
	s.OnChanged = func(v float64) { set(effects.SliderMultiplier(int(v))) }
	return s
}

func (mw *MainWindow) createPlacementControls() fyne.CanvasObject {
	mw.mirror = widget.NewCheck("Mirror", mw.state.SetMirror)
	reset := widget.NewButton("Reset Position", mw.state.ResetOffsetRotation)
	return container.NewHBox(mw.mirror, reset)
}

func (mw *MainWindow) applyInvert() {
	on := mw.invert.Checked
	mw.state.SetInvert(on, on && mw.invertBoth.Checked)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open File...", mw.onOpenFile),
		fyne.NewMenuItem("Open Folder...", mw.onOpenFolder),
		fyne.NewMenuItem("Reload Page", mw.onReload),
	)
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Reset Position", mw.state.ResetOffsetRotation),
		fyne.NewMenuItem("Reset Colors", mw.onResetColors),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventDocumentOpened, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.SetTitle(appTitle + " - " + filepath.Base(path))
			mw.prefs.SetString(config.PrefLastDocument, path)
			mw.savePrefs()
		}
		mw.pages.Refresh()
	})

	mw.state.On(app.EventPageLoaded, func(data interface{}) {
		page, _ := data.(int)
		mw.pages.Select(page)
		mw.prefs.SetInt(config.PrefLastPage, page)
		mw.savePrefs()
		if src := mw.state.Source(); src != nil {
			mw.updateStatus(fmt.Sprintf("%s: %.1f x %.1f in",
				mw.pageName(page), src.WidthInches(), src.HeightInches()))
		}
	})

	mw.state.On(app.EventRedraw, func(interface{}) {
		mw.preview.Refresh()
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) pageName(page int) string {
	if n, ok := mw.state.Document().(pageNamer); ok {
		return fmt.Sprintf("%d. %s", page+1, n.PageName(page))
	}
	return fmt.Sprintf("Page %d", page+1)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(config.PrefLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory used for the last open.
func (mw *MainWindow) saveLastDir(dir string) {
	mw.prefs.SetString(config.PrefLastDir, dir)
	mw.savePrefs()
}

func (mw *MainWindow) savePrefs() {
	if err := mw.prefs.Save(); err != nil {
		log.Printf("Failed to save preferences: %v", err)
	}
}

// OpenDocument opens path and reports failures in a dialog.
func (mw *MainWindow) OpenDocument(path string) {
	if err := mw.state.OpenDocument(path); err != nil {
		log.Printf("Failed to open %s: %v", path, err)
		dialog.ShowError(err, mw.Window)
	}
}

// RestoreLastDocument reopens the document and page from the previous
// session. Placement is not restored.
func (mw *MainWindow) RestoreLastDocument() {
	path := mw.prefs.String(config.PrefLastDocument)
	if path == "" {
		return
	}
	page := mw.prefs.Int(config.PrefLastPage, 0)
	if err := mw.state.OpenDocumentAt(path, page); err != nil {
		log.Printf("Failed to restore %s: %v", path, err)
	}
}

func (mw *MainWindow) onOpenFile() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(filepath.Dir(path))
		mw.OpenDocument(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(srcimage.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onOpenFolder() {
	fd := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		path := dir.Path()
		mw.saveLastDir(path)
		mw.OpenDocument(path)
	}, mw.Window)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onReload() {
	if mw.state.Document() == nil {
		return
	}
	if err := mw.state.ReloadPage(); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onResetColors() {
	mw.hue.SetValue(0)
	mw.saturation.SetValue(0)
	mw.value.SetValue(0)
	mw.state.ResetEffects()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s v%s\n\n"+
			"Projects sewing patterns at true scale.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
