package book

import "math"

// midRing is a fixed-size ring buffer of mid-price samples. It is not
// goroutine-safe; Cache serializes access under its own lock.
type midRing struct {
	samples []float64
	next    int
	full    bool
}

func newMidRing(size int) *midRing {
	return &midRing{samples: make([]float64, size)}
}

func (r *midRing) push(v float64) {
	r.samples[r.next] = v
	r.next++
	if r.next == len(r.samples) {
		r.next = 0
		r.full = true
	}
}

// ordered returns the samples oldest-first.
func (r *midRing) ordered() []float64 {
	if !r.full {
		out := make([]float64, r.next)
		copy(out, r.samples[:r.next])
		return out
	}
	out := make([]float64, 0, len(r.samples))
	out = append(out, r.samples[r.next:]...)
	out = append(out, r.samples[:r.next]...)
	return out
}

// returnsStdDev computes the population standard deviation of the percentage
// returns between consecutive samples. Fewer than two samples yields 0.
func (r *midRing) returnsStdDev() float64 {
	prices := r.ordered()
	if len(prices) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	if len(returns) == 0 {
		return 0
	}
	var sum float64
	for _, v := range returns {
		sum += v
	}
	mean := sum / float64(len(returns))
	var sq float64
	for _, v := range returns {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(returns)))
}
