package biquad

import (
	"math/cmplx"
)

// Poles returns the z-plane poles of the section denominator:
//
//	1 + A1*z^-1 + A2*z^-2 = 0
func (c *Coefficients) Poles() [2]complex128 {
	return quadraticRoots(1, c.A1, c.A2)
}

// IsStable reports whether both poles lie strictly inside the unit circle.
func (c *Coefficients) IsStable() bool {
	p := c.Poles()
	return cmplx.Abs(p[0]) < 1 && cmplx.Abs(p[1]) < 1
}

// Stabilize reflects every pole outside the unit circle to its conjugate
// reciprocal and rescales the numerator so the magnitude response is
// unchanged. Stable coefficient sets are returned as-is. The boolean
// reports whether a reflection happened.
//
// Reflecting p to 1/conj(p) scales |H| by |p| at every frequency, so the
// numerator is divided by |p| for each reflected pole.
func Stabilize(c Coefficients) (Coefficients, bool) {
	poles := c.Poles()
	scale := 1.0
	reflected := false

	for i, p := range poles {
		m := cmplx.Abs(p)
		if m <= 1 {
			continue
		}
		poles[i] = 1 / cmplx.Conj(p)
		scale /= m
		reflected = true
	}

	if !reflected {
		return c, false
	}

	// Conjugate pairs stay conjugate under reflection, so sum and
	// product remain real.
	sum := poles[0] + poles[1]
	prod := poles[0] * poles[1]

	return Coefficients{
		B0: c.B0 * scale,
		B1: c.B1 * scale,
		B2: c.B2 * scale,
		A1: -real(sum),
		A2: real(prod),
	}, true
}

func quadraticRoots(a, b, c float64) [2]complex128 {
	if a == 0 {
		if b == 0 {
			return [2]complex128{}
		}
		return [2]complex128{complex(-c/b, 0), 0}
	}

	discriminant := complex(b*b-4*a*c, 0)
	sqrtDiscriminant := cmplx.Sqrt(discriminant)
	den := complex(2*a, 0)
	return [2]complex128{
		(-complex(b, 0) + sqrtDiscriminant) / den,
		(-complex(b, 0) - sqrtDiscriminant) / den,
	}
}
