// Package biquad implements second-order IIR sections in Direct Form II
// Transposed, the RBJ lowpass design used by the output stage, and pole
// reflection for coefficient sets whose poles fall outside the unit circle.
package biquad
