package models

// Canonical column names of the unified listing table.
const (
	ColLat      = "lat"
	ColLon      = "lon"
	ColState    = "state"
	ColAreaM2   = "area_m2"
	ColPriceUSD = "price_usd"
	ColRegion   = "region"
)

// CanonicalColumns lists the columns every unified record carries, in table order.
// Region is passthrough and therefore not part of this list.
var CanonicalColumns = []string{ColLat, ColLon, ColState, ColAreaM2, ColPriceUSD}

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location
	TopRight   Location
}

// Contains reports whether loc lies inside the box, edges included.
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}

// Listing is one row of the unified table: a cleaned listing from either source.
type Listing struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	State    string  `json:"state"`
	AreaM2   float64 `json:"area_m2"`
	PriceUSD float64 `json:"price_usd"`
	Region   string  `json:"region,omitempty"`

	// Extra holds passthrough columns (property_type, ...) keyed by column name.
	Extra map[string]string `json:"extra,omitempty"`
}

// Location returns the listing coordinates.
func (l Listing) Location() Location {
	return Location{Lat: l.Lat, Lon: l.Lon}
}
