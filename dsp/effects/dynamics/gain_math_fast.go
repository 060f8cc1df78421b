//go:build fastmath

package dynamics

import (
	"math"

	"github.com/meko-christian/algo-approx"
)

// gainLog2 uses the approximate natural log; the gain computer tolerates
// its error far below the knee resolution.
func gainLog2(x float64) float64 { return approx.FastLog(x) / math.Ln2 }

func gainExp2(x float64) float64 { return approx.FastExp(x * math.Ln2) }
