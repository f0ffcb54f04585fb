package geo

import "strings"

// Approximate country centers used when the geocoding provider is
// unreachable or returns nothing. Keys are lowercase; common aliases map
// to the same center.
var countryCenters = map[string]Point{
	"united states":  {Longitude: -98.5795, Latitude: 39.8283},
	"usa":            {Longitude: -98.5795, Latitude: 39.8283},
	"canada":         {Longitude: -106.3468, Latitude: 56.1304},
	"united kingdom": {Longitude: -3.4360, Latitude: 55.3781},
	"uk":             {Longitude: -3.4360, Latitude: 55.3781},
	"australia":      {Longitude: 133.7751, Latitude: -25.2744},
	"germany":        {Longitude: 10.4515, Latitude: 51.1657},
	"france":         {Longitude: 2.2137, Latitude: 46.2276},
	"india":          {Longitude: 78.9629, Latitude: 20.5937},
	"brazil":         {Longitude: -51.9253, Latitude: -14.2350},
	"japan":          {Longitude: 138.2529, Latitude: 36.2048},
	"mexico":         {Longitude: -102.5528, Latitude: 23.6345},
	"spain":          {Longitude: -3.7492, Latitude: 40.4637},
	"italy":          {Longitude: 12.5674, Latitude: 41.8719},
	"netherlands":    {Longitude: 5.2913, Latitude: 52.1326},
	"south africa":   {Longitude: 22.9375, Latitude: -30.5595},
	"new zealand":    {Longitude: 174.8860, Latitude: -40.9006},
	"pakistan":       {Longitude: 69.3451, Latitude: 30.3753},
}

// Spread applied around a country center so fallback pins don't stack.
const fallbackSpread = 2.5

// CountryCenter looks up the approximate center for a country name or
// alias, case-insensitively. The bool reports whether the country is known.
func CountryCenter(country string) (Point, bool) {
	center, ok := countryCenters[strings.ToLower(strings.TrimSpace(country))]
	return center, ok
}

// fallback substitutes an approximate location when geocoding is
// exhausted: the country center with a wide random spread when the
// country is known, otherwise a uniformly random point on the inhabited
// band of the globe.
func (r *Resolver) fallback(country string) Resolved {
	if center, ok := CountryCenter(country); ok {
		return Resolved{
			Longitude:  center.Longitude + r.jitter.uniform(fallbackSpread),
			Latitude:   center.Latitude + r.jitter.uniform(fallbackSpread),
			Confidence: 0.3,
			IsFallback: true,
		}
	}

	return Resolved{
		Longitude:  r.jitter.random()*360 - 180,
		Latitude:   r.jitter.random()*140 - 70,
		Confidence: 0.1,
		IsFallback: true,
	}
}
