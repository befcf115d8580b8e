package airquality

import (
	"math"
)

const (
	// DefaultPower is the IDW distance exponent.
	DefaultPower = 2.0
	// SnapDistanceDeg is the distance under which a target is treated as
	// sitting on a station.
	SnapDistanceDeg = 0.001
	// DefaultAQI is returned when no station carries a valid AQI.
	DefaultAQI = 200
)

// RandSource supplies uniform values in [0, 1). Implementations must be safe
// for concurrent use when the interpolator is shared.
type RandSource interface {
	Float64() float64
}

// Interpolator estimates AQI and pollutant values at arbitrary coordinates
// using inverse distance weighting over station readings. Distances are
// Euclidean in degree space.
type Interpolator struct {
	power      float64
	snap       float64
	defaultAQI int
	jitter     float64
	rand       RandSource
}

type InterpolatorOption func(*Interpolator)

// WithPower sets the distance exponent. Non-positive values are ignored.
func WithPower(p float64) InterpolatorOption {
	return func(ip *Interpolator) {
		if p > 0 {
			ip.power = p
		}
	}
}

// WithDefaultAQI sets the value returned when there is nothing to interpolate.
func WithDefaultAQI(aqi int) InterpolatorOption {
	return func(ip *Interpolator) {
		ip.defaultAQI = aqi
	}
}

// WithJitter perturbs interpolated AQI values by up to ±fraction using src.
// A zero fraction or nil source disables it.
func WithJitter(fraction float64, src RandSource) InterpolatorOption {
	return func(ip *Interpolator) {
		ip.jitter = math.Abs(fraction)
		ip.rand = src
	}
}

// NewInterpolator creates a deterministic interpolator unless WithJitter is given.
func NewInterpolator(opts ...InterpolatorOption) *Interpolator {
	ip := &Interpolator{
		power:      DefaultPower,
		snap:       SnapDistanceDeg,
		defaultAQI: DefaultAQI,
	}
	for _, opt := range opts {
		opt(ip)
	}
	return ip
}

type sample struct {
	lat, lon, value float64
}

// AQI estimates the index at (lat, lon). Stations with a non-positive AQI
// are ignored. The result is clamped to [0, MaxAQI].
func (ip *Interpolator) AQI(lat, lon float64, stations []StationReading) int {
	samples := make([]sample, 0, len(stations))
	for _, s := range stations {
		if s.AQI <= 0 {
			continue
		}
		samples = append(samples, sample{lat: s.Lat, lon: s.Lon, value: float64(s.AQI)})
	}
	if len(samples) == 0 {
		return ip.defaultAQI
	}

	v, snapped := ip.weighted(lat, lon, samples)
	if snapped {
		return int(v)
	}
	if ip.jitter > 0 && ip.rand != nil {
		v *= 1 + ip.jitter*(2*ip.rand.Float64()-1)
	}
	return clampAQI(int(math.Round(v)))
}

// Pollutants estimates every channel independently. Each channel only uses
// stations reporting a positive value for it; a channel without any such
// station maps to nil. Values are rounded to two decimals.
func (ip *Interpolator) Pollutants(lat, lon float64, stations []StationReading) map[Pollutant]*float64 {
	out := make(map[Pollutant]*float64, len(Pollutants))
	for _, p := range Pollutants {
		samples := make([]sample, 0, len(stations))
		for _, s := range stations {
			c, ok := s.Concentration(p)
			if !ok || c <= 0 || math.IsNaN(c) {
				continue
			}
			samples = append(samples, sample{lat: s.Lat, lon: s.Lon, value: c})
		}
		if len(samples) == 0 {
			out[p] = nil
			continue
		}
		v, _ := ip.weighted(lat, lon, samples)
		v = math.Round(v*100) / 100
		out[p] = &v
	}
	return out
}

// Estimate bundles AQI and pollutant estimates for one point.
func (ip *Interpolator) Estimate(lat, lon float64, stations []StationReading) WardEstimate {
	return WardEstimate{
		Lat:        lat,
		Lon:        lon,
		AQI:        ip.AQI(lat, lon, stations),
		Pollutants: ip.Pollutants(lat, lon, stations),
	}
}

// weighted returns the IDW mean of samples, or the value of the nearest
// sample when it lies within the snap distance (snapped=true).
func (ip *Interpolator) weighted(lat, lon float64, samples []sample) (v float64, snapped bool) {
	nearest := -1
	nearestDist := math.Inf(1)
	var sumW, sumWV float64

	for i, s := range samples {
		d := math.Hypot(lat-s.lat, lon-s.lon)
		if d < nearestDist {
			nearestDist = d
			nearest = i
		}
		if d < ip.snap {
			continue
		}
		w := 1 / math.Pow(d, ip.power)
		sumW += w
		sumWV += w * s.value
	}

	if nearestDist < ip.snap {
		return samples[nearest].value, true
	}
	return sumWV / sumW, false
}

func clampAQI(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxAQI {
		return MaxAQI
	}
	return v
}
