/*
Command livereduce reduces the exposures of one target as the camera writes
them, for a quick look at the data during the night.

Usage

  livereduce [options] <target>   reduce <target>-nnn.fits as it arrives
  livereduce -v                   display version and copyright

  -s, -searchpath <dir>           folder the camera writes to
  -r, -reducedirectory <dir>      folder for latest.png and stack.png
  -b, -bias <file>                subtract this bias frame
  -f, -flat <file>                divide by this flat frame
  -u, -updateinterval <s>         seconds between polls
  -n <count>                      stop after count polls
  -metrics <addr>                 serve Prometheus metrics on addr
  -save                           store the options given as new defaults

A trailing "-" on <target> is accepted, so "WD1145-" and "WD1145" are the
same.  Frame numbers must have at least three digits.

Operation

Frames already in the folder are taken first, in file name order.  If
there are none the program says so and exits.  After that the folder is
polled for new frames.

Each frame has the bias subtracted and is divided by the flat, when these
are given, and is added to a running stack.  Calibration frames must match
the exposures in binning and size.  A frame that does not match is logged
and skipped.  Dividing by a zero flat pixel gives zero.

After each poll that added frames, the latest frame and the stack are
drawn to latest.png and stack.png in the reduction folder, stretched
linearly between their 20th and 99th percentiles.  The first pixel row of
a frame is drawn at the bottom of the image.

Settings are kept in $HOME/.config/liveSAFTReduce/liveSAFTReduce.conf under
the keys SearchPath, ReductionDirectory, BiasFrame, FlatFrame and
UpdateInterval.
*/
package main
