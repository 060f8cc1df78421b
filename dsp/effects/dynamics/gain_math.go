//go:build !fastmath

package dynamics

import "math"

func gainLog2(x float64) float64 { return math.Log2(x) }

func gainExp2(x float64) float64 { return math.Exp2(x) }
