/*
Command saftlog keeps the observing log of one night at a small robotic
telescope, reading it from the FITS headers of the exposures as they arrive.

Contents

  Program overview
  Command line usage
  Settings
  Files
  Output
  Companion commands


Program overview

The camera writes exposures into one folder per night, each named for its
target and frame number, for example WD1145-001.fits, WD1145-002.fits.
saftlog polls the folder, groups the files by target and, for every target,
reads the headers of the first and last exposure.  From these it derives
the run's duration, airmass at start and end, dead time between exposures
and the estimated readout time per frame.  The whole log is rewritten as a
JSON document after each poll, for a web page to show.

A target whose headers are unreadable or lack a needed keyword is logged
and left out of that poll's document.  It reappears once its files are
readable.  Deleted files drop out on the next poll.

Command line usage

  saftlog [options] <date>    log the night of <date>
  saftlog -v                  display version and copyright

Options:

  -obsdata <dir>              folder holding one subfolder per night
  -o, -outputpath <dir>       folder for the <date>.json document
  -u, -updateinterval <s>     seconds between polls
  -n <count>                  stop after count polls
  -metrics <addr>             serve Prometheus metrics on addr
  -save                       store the options given as new defaults

The night's folder is <obsdata>/<date>.  saftlog runs until interrupted.
It exits with an error only when the first poll fails, typically because
the folder does not exist yet.  Later failures are logged and retried.

Logging is to stderr, as text, or JSON when LOG_FORMAT=json.  LOG_LEVEL
selects debug, info, warn or error.

Settings

Settings are kept as a JSON object in
$HOME/.config/autoLogger/autoLogger.conf:

  OBSDATAPath      default /home/saft/OBS_DATA
  JSONPath         default /home/saft/www/autologger
  UpdateInterval   default 60

Options given on the command line override the file for the run; with
-save they also replace the stored values.

Files

Exposure file names are <target><sep><frame number>.<ext>, sep being one of
"-", "." or "_" and ext one of fits, fit, fits.gz, fit.gz or FIT.  The
target is the leading run of letters and digits.  Grouping then takes the
files named <target>-<frame number>, so that frame numbers need not be
padded or contiguous.

Header keywords read are TELESCOP, FILTER, OBJRA, OBJDEC, RA, DEC, XBINNING,
YBINNING, FOCUSPOS, EXPTIME, MJD-OBS, DATE-OBS and ELEVATIO.  EXPTIME is
required at the start of a run, MJD-OBS and ELEVATIO at both ends.
ELEVATIO is sexagesimal degrees, D:M:S.s.  When DATE-OBS is missing the UTC
time is computed from MJD-OBS.

Output

<date>.json is an array with one object per target in the order targets
were first seen.  Keys are name, startFrame, endFrame, numFrames, xbin,
ybin, telescope, targetRA, targetDEC, telescopeRA, telescopeDEC, filter,
startElevation, startAirmass, exposureTime, startMJD, focusPosition,
xpixels, ypixels, startObservationUTC, endElevation, endAirmass, endMJD,
endObservationUTC, durationMinutes, deadTime and estimatedReadoutTime.
Missing TELESCOP or FILTER show as "--unknown--", other missing keywords as
null.

Airmass is the plane parallel 1/sin(elevation).  Duration is in minutes,
dead time and readout time are in seconds.

Companion commands

  livereduce    calibrate, stack and display one target's frames live
  weatherlog    poll the weather station into a JSON snapshot
  fakevaisala   simulated weather station for testing
  simrun        replay a recorded run into a folder for testing
  acquire       point the telescope at a target by plate solving

-------------
Public domain.
*/
package main
