/*
Command fakevaisala prints a made up Vaisala weather report, standing in for
the station when testing weatherlog.

  fakevaisala [-seed n]
  fakevaisala -v

Wind direction, wind speed, temperature, humidity and pressure each take
one gaussian step from the values printed by the previous run, which are
kept in $HOME/.config/fakeVaisala/fakeVaisala.conf.  Rain and heater
readings are fixed.
*/
package main
