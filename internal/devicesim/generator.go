// SPDX-License-Identifier: MIT

// Package devicesim plays the tracker side of the ingestion path: it
// produces compact telemetry along a jittered track and posts it to the
// proxy named by the installed device record.
package devicesim

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/biketrack/biketrack/internal/ingest"
)

// Default origin is central Lyon.
const (
	DefaultLatitude  = 45.7640
	DefaultLongitude = 4.8357

	// maxStep is the largest per-message move in degrees, roughly 50 m.
	maxStep = 0.0005
	// Every noFixEvery-th message reports a lost GPS fix.
	noFixEvery = 10
)

// Generator produces compact payloads for one device. It is not safe for
// concurrent use.
type Generator struct {
	deviceID string
	rng      *rand.Rand
	now      func() time.Time
	start    time.Time

	lat, lng float64
	heading  float64
	seq      int
}

// GeneratorOption customizes NewGenerator.
type GeneratorOption func(*Generator)

// WithSeed makes the track reproducible.
func WithSeed(seed uint64) GeneratorOption {
	return func(g *Generator) { g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithOrigin sets the first position of the track.
func WithOrigin(lat, lng float64) GeneratorOption {
	return func(g *Generator) { g.lat, g.lng = lat, lng }
}

// WithClock replaces time.Now for uptime computation.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator returns a generator for deviceID.
func NewGenerator(deviceID string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		deviceID: deviceID,
		now:      time.Now,
		lat:      DefaultLatitude,
		lng:      DefaultLongitude,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	g.start = g.now()
	g.heading = g.rng.Float64() * 2 * math.Pi
	return g
}

// Next advances the track and returns the next message.
func (g *Generator) Next() ingest.Payload {
	g.seq++

	id := g.deviceID
	sig := 10 + g.rng.IntN(22)
	src := "4G"
	up := int64(g.now().Sub(g.start).Seconds())
	tmp := round(18+g.rng.Float64()*8, 1)

	p := ingest.Payload{
		ID:  &id,
		Sig: &sig,
		Src: &src,
		Up:  &up,
		Tmp: &tmp,
	}

	// The accelerometer is always reported.
	acc := ingest.Flag(true)
	ax := round(g.rng.NormFloat64()*0.05, 3)
	ay := round(g.rng.NormFloat64()*0.05, 3)
	az := round(1+g.rng.NormFloat64()*0.02, 3)
	p.Acc, p.AX, p.AY, p.AZ = &acc, &ax, &ay, &az

	fix := g.seq%noFixEvery != 0
	gps := ingest.Flag(fix)
	p.GPS = &gps
	if !fix {
		return p
	}

	g.step()
	lat, lng := round(g.lat, 6), round(g.lng, 6)
	alt := round(170+g.rng.Float64()*15, 1)
	sat := 4 + g.rng.IntN(9)
	hdop := round(0.7+g.rng.Float64()*1.8, 2)
	p.Lat, p.Lng, p.Alt, p.Sat, p.HDOP = &lat, &lng, &alt, &sat, &hdop
	return p
}

func (g *Generator) step() {
	g.heading += g.rng.NormFloat64() * 0.3
	dist := g.rng.Float64() * maxStep
	g.lat = clamp(g.lat+dist*math.Cos(g.heading), -90, 90)
	g.lng = wrap(g.lng + dist*math.Sin(g.heading))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// wrap keeps a longitude in [-180, 180].
func wrap(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
