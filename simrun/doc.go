/*
Command simrun replays a recorded run into a folder at the pace of the
camera, for testing saftlog and livereduce in daylight.

  simrun [options] <runfile>
  simrun -v

  -o, -outputdir <dir>      folder to write the frames to
  -e, -exposuretime <s>     simulated exposure time, default 3
  -r, -readouttime <s>      simulated readout time, default 2
  -save                     store the options given as new defaults

The run file lists one frame path per line.  Each frame is rewritten into
the output folder under its own name, then simrun waits exposure plus
readout time before the next.  Frames appear in the folder complete.
*/
package main
