package sample

// Downsample decimates samples to at most maxPoints for display.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// The oldest and newest samples are always kept so the trace spans the whole window and
// ends at the current value. maxPoints <= 0 disables decimation.
func Downsample(dst []Sample, samples []Sample, maxPoints int) []Sample {
	if maxPoints <= 0 || len(samples) <= maxPoints {
		if cap(dst) >= len(samples) {
			dst = dst[:len(samples)]
		} else {
			dst = make([]Sample, len(samples))
		}
		copy(dst, samples)
		return dst
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Sample, 0, maxPoints)
	}

	if maxPoints == 1 {
		return append(dst, samples[len(samples)-1])
	}

	step := float64(len(samples)-1) / float64(maxPoints-1)
	for i := 0; i < maxPoints; i++ {
		dst = append(dst, samples[int(float64(i)*step+0.5)])
	}

	return dst
}
