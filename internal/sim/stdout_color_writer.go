// ColorStdoutWriter prints human-friendly, colorized fixtures to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"golang.org/x/term"

	"fixturegen/internal/signalk"
	"fixturegen/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var devicePalette = []string{colorRed, colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan}

// Banner describes the run in the overview printed before the first line.
type Banner struct {
	Title  string
	Fields [][2]string
}

// ColorStdoutWriter prints records and fleets using ANSI colors.
type ColorStdoutWriter struct {
	out          io.Writer
	banner       *Banner
	once         sync.Once
	deviceColors map[string]string
	colorIdx     int
	steps        int
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(banner *Banner) *ColorStdoutWriter {
	return NewColorWriter(os.Stdout, banner)
}

// NewColorWriter creates a ColorStdoutWriter writing to out.
func NewColorWriter(out io.Writer, banner *Banner) *ColorStdoutWriter {
	return &ColorStdoutWriter{out: out, banner: banner, deviceColors: make(map[string]string)}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (w *ColorStdoutWriter) getDeviceColor(path string) string {
	if c, ok := w.deviceColors[path]; ok {
		return c
	}
	c := devicePalette[w.colorIdx%len(devicePalette)]
	w.deviceColors[path] = c
	w.colorIdx++
	return c
}

func (w *ColorStdoutWriter) printOverview() {
	if w.banner == nil {
		return
	}
	fmt.Fprintf(w.out, "%s:\n", w.banner.Title)
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	for _, f := range w.banner.Fields {
		fmt.Fprintf(tw, "%s:\t%s\n", f[0], f[1])
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// Write outputs a single record in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.Record) error {
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintf(w.out, "%s[%s]%s %spath=%s%s %sv1=%.2f%s %sv2=%d%s %sv3=%.2f%s\n",
		colorGray, row.Datetime, colorReset,
		w.getDeviceColor(row.Path), row.Path, colorReset,
		colorGreen, row.Values.Ch1, colorReset,
		colorYellow, row.Values.Ch2, colorReset,
		colorCyan, row.Values.Ch3, colorReset)
	return err
}

// WriteBatch outputs multiple records.
func (w *ColorStdoutWriter) WriteBatch(rows []telemetry.Record) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteFleet prints one line per vessel, in natural key order.
func (w *ColorStdoutWriter) WriteFleet(doc *signalk.Document) error {
	w.once.Do(w.printOverview)
	ts := doc.Timestamp
	if ts == "" {
		ts = "initial"
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sFLEET%s step=%d vessels=%d\n",
		colorGray, ts, colorReset, colorBlue, colorReset, w.steps, len(doc.Vessels))
	w.steps++
	for _, key := range doc.Keys() {
		v := doc.Vessels[key]
		p := v.Navigation.Position
		fmt.Fprintf(w.out, "  %s%-8s%s mmsi=%s %slat=%.5f%s %slon=%.5f%s %shdg=%.1f%s %ssog=%.0f%s\n",
			w.getDeviceColor(key), key, colorReset, v.MMSI,
			colorGreen, p.Latitude, colorReset,
			colorYellow, p.Longitude, colorReset,
			colorCyan, v.Heading.TrueHeading, colorReset,
			colorMagenta, v.SpeedOverGround, colorReset)
	}
	return nil
}
