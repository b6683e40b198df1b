// Public domain.

package weather_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saft-obs/saftlog/internal/weather"
)

const report = `Data received 2020-05-30T22:10:05Z:
Wind Direction: 128.0 °
    Wind Speed: 13.7 km/h
   Temperature: 10.5 ℃
 Rel. Humidity: 36.7 %
      Pressure: 776.3 hPa
   Accum. Rain: 18.8 mm
  Heater Temp.: 11.9 ℃
Heater Voltage: 18.2 V
`

func TestParse(t *testing.T) {
	s := weather.Parse(report)
	assert.Equal(t, "2020-05-30", s.Date)
	assert.Equal(t, "22:10:05", s.Time)
	for _, c := range []struct {
		got  *float64
		want float64
	}{
		{s.WindDirection, 128},
		{s.WindSpeed, 13.7},
		{s.Temperature, 10.5},
		{s.RelativeHumidity, 36.7},
		{s.Pressure, 776.3},
		{s.AccumulatedRain, 18.8},
		{s.HeaterTemperature, 11.9},
		{s.HeaterVoltage, 18.2},
	} {
		require.NotNil(t, c.got)
		assert.Equal(t, c.want, *c.got)
	}
	assert.False(t, s.Empty())
}

func TestParseIgnoresJunk(t *testing.T) {
	s := weather.Parse(`<pre>
Data received garbage
   Temperature: warm ℃
      Pressure:
      Pressure: 780 hPa
Unknown Thing: 4 W
`)
	assert.Empty(t, s.Date)
	assert.Nil(t, s.Temperature)
	require.NotNil(t, s.Pressure)
	assert.Equal(t, 780.0, *s.Pressure)

	s = weather.Parse("")
	assert.True(t, s.Empty())
}

func TestFormat(t *testing.T) {
	var b strings.Builder
	ts := time.Date(2020, 5, 30, 22, 10, 5, 0, time.UTC)
	require.NoError(t, weather.Format(&b, weather.Parse(report), ts))
	assert.Equal(t, report, b.String())
}

func TestWriteSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.json")
	s := weather.Parse("   Temperature: -2.5 ℃\n")
	require.NoError(t, weather.WriteSnapshot(path, s))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, map[string]any{"Temperature": -2.5}, m)
}
