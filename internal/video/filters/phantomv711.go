package filters

import "github.com/fusion-imaging/sitsi/internal/video"

// PhantomV711 is the composite cleanup chain for the ASDEX-U Phantom V711
// visible-light camera: static sensor artifacts are removed first, then
// hard-X-ray speckle.
type PhantomV711 struct {
	chain []video.Filter
}

// NewPhantomV711 builds the chain with default parameters.
func NewPhantomV711() *PhantomV711 {
	return &PhantomV711{chain: []video.Filter{NewStaticArtifacts(), NewHXR()}}
}

// Apply implements video.Filter.
func (f *PhantomV711) Apply(times []float64, frames *video.Cube) *video.Cube {
	d := frames.Clone()
	for _, sub := range f.chain {
		d = sub.Apply(times, d)
	}
	return d
}
