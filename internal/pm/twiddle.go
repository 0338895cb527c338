package pm

import "math"

// TwiddleTable holds cos/sin of 2πk/N for k in [0, N/2), the only roots of
// unity a radix-2 transform of length N touches.
type TwiddleTable struct {
	cos []float64
	sin []float64
	n   int
}

func NewTwiddleTable(n int) *TwiddleTable {
	half := n / 2
	t := &TwiddleTable{
		cos: make([]float64, half),
		sin: make([]float64, half),
		n:   n,
	}
	for k := 0; k < half; k++ {
		angle := 2 * math.Pi * float64(k) / float64(n)
		t.cos[k] = math.Cos(angle)
		t.sin[k] = math.Sin(angle)
	}
	return t
}

// W returns exp(sign·2πi·k/N).
func (t *TwiddleTable) W(k int, sign float64) (re, im float64) {
	return t.cos[k], sign * t.sin[k]
}
