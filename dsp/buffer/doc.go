// Package buffer holds precomputed stereo loops: the fallback and rain
// generation path, and the drone source. Loops carry 50 ms linear fades at
// both ends and are immutable once built, so one loop can back any number of
// concurrent players.
package buffer
