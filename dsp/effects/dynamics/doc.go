// Package dynamics provides the stereo-linked soft-knee compressor that sits
// between the channel merger and the output lowpass.
package dynamics
