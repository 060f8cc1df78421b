// Package frequency measures the spectral shape of rendered noise:
// Welch-averaged power spectra, octave-band densities, and the least-squares
// slope across octaves in dB per octave.
package frequency
