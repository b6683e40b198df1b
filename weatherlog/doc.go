/*
Command weatherlog polls the weather station and keeps its latest reading
as a JSON document.

Usage

  weatherlog [options]    poll the weather station
  weatherlog -v           display version and copyright

  -c <command>            station command printing a Vaisala report
  -o <file>               JSON snapshot of the latest reading
  -u, -updateinterval <s> seconds between polls
  -n <count>              stop after count polls
  -metrics <addr>         serve Prometheus metrics on addr
  -save                   store the options given as new defaults

The station command is run once per poll and must print a Vaisala text
report on stdout, as fakevaisala does.  A failing command or a report with
no readings is logged and the next poll tried as usual.

The document has keys date, time, WindDirection, WindSpeed, Temperature,
RelativeHumidity, Pressure, AccumulatedRain, HeaterTemperature and
HeaterVoltage.  Readings missing from the report are left out.

Settings are kept in $HOME/.config/weatherLog/weatherLog.conf under the keys
StationCommand, WeatherFile and UpdateInterval.
*/
package main
