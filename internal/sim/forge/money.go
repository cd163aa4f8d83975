package forge

import (
	"fmt"
	"math"
)

// Coin is a D-Coin amount in ten-thousandths. All balance mutations
// round at the edge so two sessions applying the same ops never drift
// by floating point residue.
type Coin int64

func CoinFromFloat(f float64) Coin {
	return Coin(math.Round(f * 10000))
}

func (c Coin) Float() float64 { return float64(c) / 10000 }

func (c Coin) String() string {
	neg := ""
	v := int64(c)
	if v < 0 {
		neg = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%04d", neg, v/10000, v%10000)
}

// round4 snaps a float to four decimal places, matching Coin precision.
func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
