package main

import (
	"fmt"
	"io"
	"time"

	"github.com/geometeo/weather-client/internal/models"
)

// terminalView renders outcomes to a writer. It satisfies runner.View; the
// busy indicator is a status line rather than a disabled control, and focus
// is a fresh prompt.
type terminalView struct {
	out io.Writer
}

func newTerminalView(out io.Writer) *terminalView {
	return &terminalView{out: out}
}

func (v *terminalView) SetBusy(busy bool) {
	if busy {
		fmt.Fprintln(v.out, "fetching weather...")
	}
}

func (v *terminalView) RenderWeather(report models.WeatherReport) {
	fmt.Fprintf(v.out, "\n%s (%.4f, %.4f)\n", report.City, report.Lat, report.Lon)
	fmt.Fprintf(v.out, "  %s\n", report.Description)
	fmt.Fprintf(v.out, "  temperature: %.1f°C (feels like %.1f°C)\n", report.Temperature, report.FeelsLike)
	fmt.Fprintf(v.out, "  humidity: %d%%  pressure: %d hPa  wind: %.1f m/s\n",
		report.Humidity, report.Pressure, report.WindSpeed)
	if report.Sunrise > 0 && report.Sunset > 0 {
		fmt.Fprintf(v.out, "  sunrise: %s  sunset: %s\n",
			time.Unix(report.Sunrise, 0).Format("15:04"),
			time.Unix(report.Sunset, 0).Format("15:04"))
	}
	fmt.Fprintln(v.out)
}

func (v *terminalView) RenderError(message string) {
	fmt.Fprintf(v.out, "error: %s\n", message)
}

func (v *terminalView) FocusQuery() {
	fmt.Fprint(v.out, "> ")
}
