// Public domain.

// Package weather reads the text report of a Vaisala weather transmitter
// and writes the latest reading as a JSON snapshot.
//
// A report looks like
//
//	Data received 2020-05-30T22:10:05Z:
//	Wind Direction: 128.0 °
//	    Wind Speed: 13.7 km/h
//	   Temperature: 10.5 ℃
//	 Rel. Humidity: 36.7 %
//	      Pressure: 776.3 hPa
//	   Accum. Rain: 18.8 mm
//	  Heater Temp.: 11.9 ℃
//	Heater Voltage: 18.2 V
package weather

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/saft-obs/saftlog/internal/snapshot"
)

// Sample is one report.  Quantities missing from the report are nil and
// left out of the JSON.
type Sample struct {
	Date              string   `json:"date,omitempty"`
	Time              string   `json:"time,omitempty"`
	WindDirection     *float64 `json:"WindDirection,omitempty"`     // degrees
	WindSpeed         *float64 `json:"WindSpeed,omitempty"`         // km/h
	Temperature       *float64 `json:"Temperature,omitempty"`       // °C
	RelativeHumidity  *float64 `json:"RelativeHumidity,omitempty"`  // percent
	Pressure          *float64 `json:"Pressure,omitempty"`          // hPa
	AccumulatedRain   *float64 `json:"AccumulatedRain,omitempty"`   // mm
	HeaterTemperature *float64 `json:"HeaterTemperature,omitempty"` // °C
	HeaterVoltage     *float64 `json:"HeaterVoltage,omitempty"`     // V
}

const (
	receivedPrefix = "Data received "
	receivedLayout = "2006-01-02T15:04:05"
)

// quantity labels in report order
var labels = []struct {
	label string
	unit  string
	field func(*Sample) **float64
}{
	{"Wind Direction", "°", func(s *Sample) **float64 { return &s.WindDirection }},
	{"Wind Speed", "km/h", func(s *Sample) **float64 { return &s.WindSpeed }},
	{"Temperature", "℃", func(s *Sample) **float64 { return &s.Temperature }},
	{"Rel. Humidity", "%", func(s *Sample) **float64 { return &s.RelativeHumidity }},
	{"Pressure", "hPa", func(s *Sample) **float64 { return &s.Pressure }},
	{"Accum. Rain", "mm", func(s *Sample) **float64 { return &s.AccumulatedRain }},
	{"Heater Temp.", "℃", func(s *Sample) **float64 { return &s.HeaterTemperature }},
	{"Heater Voltage", "V", func(s *Sample) **float64 { return &s.HeaterVoltage }},
}

// Parse reads a report.  Lines that are not recognised or do not parse
// are quietly ignored, so any text gives a Sample, possibly empty.
func Parse(text string) Sample {
	var s Sample
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, receivedPrefix) {
			ts := strings.TrimSuffix(strings.TrimSuffix(line[len(receivedPrefix):], ":"), "Z")
			if t, err := time.Parse(receivedLayout, ts); err == nil {
				s.Date = t.Format(time.DateOnly)
				s.Time = t.Format(time.TimeOnly)
			}
			continue
		}
		label, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val := strings.Fields(rest)
		if len(val) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(val[0], 64)
		if err != nil {
			continue // quietly ignore malformed values
		}
		for _, l := range labels {
			if strings.TrimSpace(label) == l.label {
				*l.field(&s) = &v
				break
			}
		}
	}
	return s
}

// Empty reports whether the sample holds no reading at all.
func (s *Sample) Empty() bool {
	if s.Date != "" {
		return false
	}
	for _, l := range labels {
		if *l.field(s) != nil {
			return false
		}
	}
	return true
}

// Format writes s as a report that Parse reads back, stamped with t.
func Format(w io.Writer, s Sample, t time.Time) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s%sZ:\n", receivedPrefix, t.UTC().Format(receivedLayout))
	for _, l := range labels {
		if v := *l.field(&s); v != nil {
			fmt.Fprintf(bw, "%14s: %.1f %s\n", l.label, *v, l.unit)
		}
	}
	return bw.Flush()
}

// WriteSnapshot replaces the JSON snapshot at path with s.
func WriteSnapshot(path string, s Sample) error {
	return snapshot.WriteJSON(path, s)
}
