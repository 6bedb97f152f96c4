package block

import (
	"math"
)

// maxTaps limits the length of designed filters.
const maxTaps = 4095

// sample is a type of samples that FIR filters operate on.
type sample interface {
	~float32 | ~complex64
}

// lowpass designs Kaiser-windowed low-pass filter taps. Cutoff and
// transition are relative to the sample rate, ripple is the maximum
// pass band ripple. Taps are normalized to unity gain at DC.
func lowpass(cutoff, transition, ripple float64) []float32 {
	attenuation := -20 * math.Log10(ripple)
	// NaN and too narrow transitions are limited by maxTaps
	length := math.Ceil((attenuation-8)/(2.285*2*math.Pi*transition)) + 1
	n := maxTaps
	if length < maxTaps {
		n = int(length)
	}
	if n < 3 {
		n = 3
	}
	if n%2 == 0 {
		n++
	}
	beta := kaiserBeta(attenuation)
	i0beta := besselI0(beta)

	taps := make([]float64, n)
	var sum float64
	mid := float64(n-1) / 2
	for i := range taps {
		x := float64(i) - mid
		var h float64
		if x == 0 {
			h = 2 * cutoff
		} else {
			h = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
		}
		r := 2*float64(i)/float64(n-1) - 1
		w := besselI0(beta*math.Sqrt(1-r*r)) / i0beta
		taps[i] = h * w
		sum += taps[i]
	}
	result := make([]float32, n)
	for i := range taps {
		result[i] = float32(taps[i] / sum)
	}
	return result
}

func kaiserBeta(attenuation float64) float64 {
	switch {
	case attenuation > 50:
		return 0.1102 * (attenuation - 8.7)
	case attenuation >= 21:
		return 0.5842*math.Pow(attenuation-21, 0.4) + 0.07886*(attenuation-21)
	}
	return 0
}

// besselI0 is the zeroth order modified Bessel function of the first
// kind.
func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	half := x / 2
	for k := 1; k < 50; k++ {
		term *= (half / float64(k)) * (half / float64(k))
		sum += term
		if term < sum*1e-12 {
			break
		}
	}
	return sum
}

// multirateTaps designs the anti-aliasing filter of the rational
// resampler.
func multirateTaps(interp, decim int) []float32 {
	rate := interp
	if decim > rate {
		rate = decim
	}
	taps := lowpass(0.4/float64(rate), 0.2/float64(rate), 0.0001)
	for i := range taps {
		taps[i] *= float32(interp)
	}
	return taps
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// resampler is a polyphase rational resampler. It changes the rate by
// interp/decim.
type resampler[T sample] struct {
	interp  int
	decim   int
	taps    []T
	history []T
	next    int
}

func newResampler[T sample](interp, decim int, taps []T) *resampler[T] {
	d := gcd(interp, decim)
	interp, decim = interp/d, decim/d
	depth := (len(taps) + interp - 1) / interp
	return &resampler[T]{
		interp:  interp,
		decim:   decim,
		taps:    taps,
		history: make([]T, depth-1),
	}
}

// process returns resampled input. Output has approximately
// len(in)*interp/decim samples.
func (r *resampler[T]) process(in []T) []T {
	h := len(r.history)
	buf := make([]T, h+len(in))
	copy(buf, r.history)
	copy(buf[h:], in)

	out := make([]T, 0, len(in)*r.interp/r.decim+1)
	u := r.next
	for ; u/r.interp < len(in); u += r.decim {
		n, phase := h+u/r.interp, u%r.interp
		var acc T
		for k := 0; phase+k*r.interp < len(r.taps); k++ {
			acc += r.taps[phase+k*r.interp] * buf[n-k]
		}
		out = append(out, acc)
	}
	r.next = u - len(in)*r.interp
	copy(r.history, buf[len(buf)-h:])
	return out
}

func complexTaps(taps []float32) []complex64 {
	result := make([]complex64, len(taps))
	for i := range taps {
		result[i] = complex(taps[i], 0)
	}
	return result
}
