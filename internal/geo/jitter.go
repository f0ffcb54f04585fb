package geo

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Jitter magnitudes in degrees. Direct coordinate submissions get a small
// offset; geocoded results get a larger one because a whole city resolves
// to a single point and every pin there would stack exactly.
const (
	CoordinateJitter = 0.005
	GeocodedJitter   = 0.008
)

// Jitterer produces bounded random coordinate offsets. Safe for concurrent
// use; seedable for deterministic tests.
type Jitterer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewJitterer() *Jitterer {
	return NewSeededJitterer(time.Now().UnixNano())
}

func NewSeededJitterer(seed int64) *Jitterer {
	return &Jitterer{rnd: rand.New(rand.NewSource(seed))}
}

// Offset returns the input point displaced by a random offset uniformly
// distributed by area within a disk of the given radius. Radius is drawn
// as r = radius * sqrt(u); drawing it linearly would bias toward the
// center of the disk.
func (j *Jitterer) Offset(longitude, latitude, radius float64) (float64, float64) {
	j.mu.Lock()
	angle := j.rnd.Float64() * 2 * math.Pi
	distance := math.Sqrt(j.rnd.Float64()) * radius
	j.mu.Unlock()

	return longitude + math.Cos(angle)*distance, latitude + math.Sin(angle)*distance
}

// uniform returns a value in [-spread, +spread].
func (j *Jitterer) uniform(spread float64) float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return (j.rnd.Float64() - 0.5) * 2 * spread
}

// random returns a value in [0, 1).
func (j *Jitterer) random() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rnd.Float64()
}
