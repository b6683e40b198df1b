/*
Command acquire points the telescope at a target.

  acquire [options] <ra> <dec>
  acquire -v

  -telpath <dir>     folder of the telescope programs
  -tmppath <dir>     folder for acquisition images
  -e <s>             acquisition exposure time, default 5
  -t <arcsec>        pointing tolerance, default 10
  -n <count>         give up after count exposures, default 3
  -save              store the options given as new defaults

RA is h:m:s, Dec is d:m:s.

The telescope is slewed to the target, then an acquisition image is taken
and plate solved.  If the solved centre is further from the target than the
tolerance, the telescope is offset by the difference and the cycle
repeated.

The programs run are settings GotoCommand (ra dec in degrees),
OffsetCommand (RA and Dec offsets in arc seconds, RA scaled by cos Dec),
ExposeCommand (exposure time, image file) and SolveCommand, called with
astrometry.net solve-field arguments --wcs, --ra, --dec, --radius and the
image file.  Relative paths are taken from telPath.  Any of these failing
ends the program with an error, as does not reaching the tolerance.

Settings are kept in $HOME/.config/acquireTarget/acquireTarget.conf.
*/
package main
