package video

import (
	"errors"
	"fmt"
)

// ErrWavelengths indicates a spectrum constructed without a usable
// wavelength vector.
var ErrWavelengths = errors.New("video: wavelength vector required")

// Spectrum is a one-dimensional power spectrum usable as inversion input.
type Spectrum struct {
	data        []float64
	wavelengths []float64
}

// NewSpectrum builds a spectrum over the given wavelength grid. The two
// vectors must have the same length.
func NewSpectrum(data, wavelengths []float64) (*Spectrum, error) {
	if len(wavelengths) == 0 {
		return nil, ErrWavelengths
	}
	if len(data) != len(wavelengths) {
		return nil, fmt.Errorf("video: spectrum has %d samples but %d wavelengths", len(data), len(wavelengths))
	}
	return &Spectrum{data: data, wavelengths: wavelengths}, nil
}

// Data returns the spectral power vector.
func (s *Spectrum) Data() []float64 { return s.data }

// Wavelengths returns the wavelength grid.
func (s *Spectrum) Wavelengths() []float64 { return s.wavelengths }
