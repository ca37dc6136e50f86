// gui.go
package main

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"handosc/bridge"
)

var guiChan = make(chan func(), 50) // buffered

// --- Status handling ---
var statusColors = map[string]color.RGBA{
	"Running": {0, 200, 0, 255},
	"Idle":    {200, 200, 200, 255},
	"Error":   {200, 100, 0, 255},
	"Inert":   {200, 0, 0, 255},
	"Stopped": {150, 150, 150, 255},
}

func newStatus(text string) *canvas.Text {
	txt := canvas.NewText(text, statusColors[text])
	txt.TextSize = 14
	txt.Alignment = fyne.TextAlignCenter
	return txt
}

func applyStatus(label *canvas.Text, text string) {
	col, ok := statusColors[text]
	if !ok {
		col = statusColors["Idle"]
	}
	label.Text = text
	label.Color = col
	label.Refresh()
}

// statusFor picks the label for the latest stats, given the previous poll.
func statusFor(b *bridge.Bridge, prev, cur bridge.Stats) string {
	switch {
	case b.Inert():
		return "Inert"
	case cur.SendErrors > prev.SendErrors:
		return "Error"
	case cur.Sent > prev.Sent:
		return "Running"
	default:
		return "Idle"
	}
}

// --- Console handling ---

// Console is a bounded log view. It is an io.Writer so the logger can tee
// into it; writes never block the caller.
type Console struct {
	widget *widget.Entry
	limit  int
	lines  []string // owned by the guiChan worker
}

func newConsole(limit int) *Console {
	c := &Console{
		widget: widget.NewMultiLineEntry(),
		limit:  limit,
	}
	c.widget.SetPlaceHolder("Console output...")
	c.widget.Wrapping = fyne.TextWrapWord
	c.widget.Disable()
	return c
}

func (c *Console) Write(p []byte) (int, error) {
	text := strings.TrimRight(string(p), "\n")
	select {
	case guiChan <- func() { c.append(text) }:
	default:
		// GUI is behind, drop the line rather than stall the bridge
	}
	return len(p), nil
}

func (c *Console) append(text string) {
	c.lines = append(c.lines, strings.Split(text, "\n")...)

	// enforce max lines
	if len(c.lines) > c.limit {
		c.lines = c.lines[len(c.lines)-c.limit:]
	}
	joined := strings.Join(c.lines, "\n")
	n := len(c.lines)
	fyne.Do(func() {
		c.widget.SetText(joined)
		c.widget.CursorRow = n
	})
}

// --- Monitor window ---
type monitor struct {
	app     fyne.App
	console *Console
}

func newMonitor(limit int) *monitor {
	m := &monitor{
		app:     app.New(),
		console: newConsole(limit),
	}

	// GUI update loop
	go func() {
		for job := range guiChan {
			job()
		}
	}()
	return m
}

// run shows the window and blocks until it is closed or ctx ends.
func (m *monitor) run(ctx context.Context, b *bridge.Bridge) {
	w := m.app.NewWindow("handosc")

	status := newStatus("Idle")
	stats := widget.NewLabel("")

	consoleScroll := container.NewVScroll(m.console.widget)
	consoleScroll.SetMinSize(fyne.NewSize(0, 300))

	header := container.NewGridWithColumns(3,
		widget.NewLabelWithStyle("Bridge", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		status,
		stats,
	)
	w.SetContent(container.NewVBox(
		header,
		widget.NewLabel("Console:"),
		consoleScroll,
	))
	w.Resize(fyne.NewSize(800, 500))

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		var prev bridge.Stats
		for {
			select {
			case <-ctx.Done():
				fyne.Do(func() {
					applyStatus(status, "Stopped")
					m.app.Quit()
				})
				return
			case <-ticker.C:
				cur := b.Stats()
				label := statusFor(b, prev, cur)
				line := fmt.Sprintf("ticks %d  sent %d  errors %d", cur.Ticks, cur.Sent, cur.SendErrors)
				prev = cur
				fyne.Do(func() {
					applyStatus(status, label)
					stats.SetText(line)
				})
			}
		}
	}()

	w.ShowAndRun()
}
