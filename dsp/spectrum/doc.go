// Package spectrum implements the analysis tap: a side-chain analyser that
// records the most recent output block and produces smoothed magnitude
// snapshots when a consumer asks for one.
//
// The render path only ever tries the analyser lock and skips a block when a
// snapshot is in progress, so visualization never gates playback.
package spectrum
