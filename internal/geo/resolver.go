package geo

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultGeocodeTimeout = 5 * time.Second

var (
	// ErrCoordinatesOutOfRange is returned before any provider call when a
	// coordinate query is outside [-90,90]x[-180,180].
	ErrCoordinatesOutOfRange = errors.New("coordinates out of valid range")

	// ErrUnresolvableQuery is returned when a query carries neither
	// coordinates nor city+country. It is the only other error Resolve
	// can produce; provider failures never propagate.
	ErrUnresolvableQuery = errors.New("query needs coordinates or city and country")
)

// Point is a longitude/latitude pair.
type Point struct {
	Longitude float64
	Latitude  float64
}

// Query is one location to resolve. Exactly one shape applies per
// request: coordinates when both pointers are set, otherwise city/country.
type Query struct {
	City    string
	State   string
	Country string

	Latitude  *float64
	Longitude *float64
}

// HasCoordinates reports whether the query carries an explicit point.
func (q Query) HasCoordinates() bool {
	return q.Latitude != nil && q.Longitude != nil
}

// SearchString builds the provider search text "city[, state], country".
func (q Query) SearchString() string {
	parts := make([]string, 0, 3)
	parts = append(parts, q.City)
	if q.State != "" {
		parts = append(parts, q.State)
	}
	parts = append(parts, q.Country)
	return strings.Join(parts, ", ")
}

// Resolved is the outcome of a resolution: a usable coordinate pair with
// a confidence score. IsFallback marks approximate substitutes.
type Resolved struct {
	Longitude  float64
	Latitude   float64
	Confidence float64
	IsFallback bool
}

// Match is a positive geocoding result.
type Match struct {
	Longitude float64
	Latitude  float64
	Relevance float64
	PlaceName string
}

// Geocoder is the external provider. A nil match with a nil error means
// the provider answered but found nothing.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Match, error)
}

// Resolver turns a location query into map coordinates. Provider failures
// are absorbed: city queries always produce some coordinate, falling back
// to country centers and finally a random point.
type Resolver struct {
	geocoder Geocoder
	jitter   *Jitterer
	timeout  time.Duration
	log      zerolog.Logger
}

func NewResolver(geocoder Geocoder, jitter *Jitterer, timeout time.Duration, log zerolog.Logger) *Resolver {
	if jitter == nil {
		jitter = NewJitterer()
	}
	if timeout <= 0 {
		timeout = defaultGeocodeTimeout
	}
	return &Resolver{
		geocoder: geocoder,
		jitter:   jitter,
		timeout:  timeout,
		log:      log,
	}
}

// Resolve produces a single coordinate pair for the query.
//
// Coordinate queries are validated and jittered locally with no provider
// call. City queries go to the provider with a bounded timeout; on any
// failure or empty answer the fallback table takes over. The returned
// error is non-nil only for invalid input, never for provider trouble.
func (r *Resolver) Resolve(ctx context.Context, q Query, applyJitter bool) (Resolved, error) {
	if q.HasCoordinates() {
		lat, lng := *q.Latitude, *q.Longitude
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return Resolved{}, ErrCoordinatesOutOfRange
		}
		if applyJitter {
			lng, lat = r.jitter.Offset(lng, lat, CoordinateJitter)
		}
		return Resolved{Longitude: lng, Latitude: lat, Confidence: 1}, nil
	}

	if strings.TrimSpace(q.City) == "" || strings.TrimSpace(q.Country) == "" {
		return Resolved{}, ErrUnresolvableQuery
	}

	search := q.SearchString()

	gctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	match, err := r.geocoder.Geocode(gctx, search)
	if err != nil {
		r.log.Warn().Err(err).Str("query", search).Msg("geocoding failed, using fallback")
		return r.fallback(q.Country), nil
	}
	if match == nil {
		r.log.Warn().Str("query", search).Msg("no geocoding results, using fallback")
		return r.fallback(q.Country), nil
	}

	lng, lat := match.Longitude, match.Latitude
	if applyJitter {
		lng, lat = r.jitter.Offset(lng, lat, GeocodedJitter)
	}

	confidence := match.Relevance
	if confidence == 0 {
		confidence = 1
	}

	return Resolved{Longitude: lng, Latitude: lat, Confidence: confidence}, nil
}
