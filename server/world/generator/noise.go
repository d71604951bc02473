package generator

import "github.com/ojrac/opensimplex-go"

// octaveNoise layers several opensimplex noise fields of increasing
// frequency and decreasing amplitude. The result is normalised to [-1, 1].
type octaveNoise struct {
	octaves     []opensimplex.Noise
	persistence float64
	lacunarity  float64
}

// newOctaveNoise creates an octaveNoise of n octaves seeded from the seed
// passed. Each octave uses a distinct seed so that the fields do not
// correlate.
func newOctaveNoise(seed int64, n int) *octaveNoise {
	o := &octaveNoise{persistence: 0.5, lacunarity: 2}
	for i := range n {
		o.octaves = append(o.octaves, opensimplex.New(seed+int64(i)*0x9e3779b9))
	}
	return o
}

// at2 samples the layered noise at the 2D position passed.
func (o *octaveNoise) at2(x, z float64) float64 {
	var sum, amp, freq, norm float64 = 0, 1, 1, 0
	for _, oct := range o.octaves {
		sum += oct.Eval2(x*freq, z*freq) * amp
		norm += amp
		amp *= o.persistence
		freq *= o.lacunarity
	}
	return sum / norm
}

// at3 samples the layered noise at the 3D position passed.
func (o *octaveNoise) at3(x, y, z float64) float64 {
	var sum, amp, freq, norm float64 = 0, 1, 1, 0
	for _, oct := range o.octaves {
		sum += oct.Eval3(x*freq, y*freq, z*freq) * amp
		norm += amp
		amp *= o.persistence
		freq *= o.lacunarity
	}
	return sum / norm
}
