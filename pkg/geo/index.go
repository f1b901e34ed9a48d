// Package geo provides an R-Tree index over unified listings for
// bounding-box, radius and nearest-neighbor lookups. Rect construction is
// parallelized across CPU cores; tree inserts are serialized.
package geo

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"

	"github.com/kass/go-realestate/pkg/models"
)

const (
	tolerance   = 0.01
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
	earthRadius = 6371.0 // km
)

// ErrEmptyIndex is returned by Bounds when nothing has been indexed.
var ErrEmptyIndex = errors.New("index is empty")

// Hit is an indexed listing together with its position in the source table.
type Hit struct {
	Row     int
	Listing *models.Listing
}

// spatialItem wraps a Hit for R-Tree indexing
type spatialItem struct {
	Hit
	rect *rtreego.Rect
}

func (si *spatialItem) Bounds() *rtreego.Rect {
	return si.rect
}

// ListingIndex is a thread-safe R-Tree over listing coordinates
type ListingIndex struct {
	tree      *rtreego.Rtree
	mu        sync.RWMutex
	itemCount atomic.Int64
	nextRow   int
	bounds    models.BoundingBox
	hasBounds bool
}

// NewListingIndex creates an empty index
func NewListingIndex() *ListingIndex {
	return &ListingIndex{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren),
	}
}

// Index adds listings to the tree. Row numbers in returned hits are the
// positions in the given slice, offset by the number of listings already
// indexed.
func (g *ListingIndex) Index(listings []models.Listing) {
	if len(listings) == 0 {
		return
	}

	numCPU := runtime.NumCPU()
	items := make([]*spatialItem, len(listings))
	var wg sync.WaitGroup

	// Reserve the row range up front so concurrent calls never share rows.
	g.mu.Lock()
	offset := g.nextRow
	g.nextRow += len(listings)
	g.mu.Unlock()

	batchSize := len(listings) / numCPU
	if batchSize < 1 {
		batchSize = 1
		numCPU = len(listings)
	}

	for i := 0; i < numCPU && i*batchSize < len(listings); i++ {
		start := i * batchSize
		end := start + batchSize
		if i == numCPU-1 || end > len(listings) {
			end = len(listings)
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for j := start; j < end; j++ {
				l := &listings[j]
				rect := rtreego.Point{l.Lat, l.Lon}.ToRect(tolerance)
				items[j] = &spatialItem{Hit{Row: offset + j, Listing: l}, rect}
			}
		}(start, end)
	}

	wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, item := range items {
		if item == nil {
			continue
		}
		g.tree.Insert(item)
		g.extend(item.Listing.Location())
	}
	g.itemCount.Add(int64(len(items)))
}

func (g *ListingIndex) extend(loc models.Location) {
	if !g.hasBounds {
		g.bounds = models.BoundingBox{BottomLeft: loc, TopRight: loc}
		g.hasBounds = true
		return
	}
	g.bounds.BottomLeft.Lat = math.Min(g.bounds.BottomLeft.Lat, loc.Lat)
	g.bounds.BottomLeft.Lon = math.Min(g.bounds.BottomLeft.Lon, loc.Lon)
	g.bounds.TopRight.Lat = math.Max(g.bounds.TopRight.Lat, loc.Lat)
	g.bounds.TopRight.Lon = math.Max(g.bounds.TopRight.Lon, loc.Lon)
}

// SearchBox returns all listings inside the box, edges included.
func (g *ListingIndex) SearchBox(box models.BoundingBox) ([]Hit, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rect, err := rtreego.NewRect(
		rtreego.Point{box.BottomLeft.Lat, box.BottomLeft.Lon},
		[]float64{box.TopRight.Lat - box.BottomLeft.Lat, box.TopRight.Lon - box.BottomLeft.Lon},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	results := g.tree.SearchIntersect(rect)

	// The tree matches on tolerance rects, so re-check the exact coordinates.
	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialItem)
		if !ok {
			continue
		}
		if box.Contains(item.Listing.Location()) {
			hits = append(hits, item.Hit)
		}
	}

	return hits, nil
}

// SearchRadius returns all listings within radiusKm of center, by
// great-circle distance.
func (g *ListingIndex) SearchRadius(center models.Location, radiusKm float64) ([]Hit, error) {
	if radiusKm <= 0 || math.IsNaN(radiusKm) {
		return nil, fmt.Errorf("invalid radius search: radius must be positive, got %v", radiusKm)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	// Degrees of latitude are constant; longitude degrees shrink towards the
	// poles, so widen that side of the box.
	degLat := (radiusKm / earthRadius) * (180 / math.Pi)
	degLon := degLat
	if c := math.Cos(center.Lat * math.Pi / 180); c > 1e-6 {
		degLon = math.Min(degLat/c, 180)
	}

	rect, err := rtreego.NewRect(
		rtreego.Point{center.Lat - degLat, center.Lon - degLon},
		[]float64{2 * degLat, 2 * degLon},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid radius search: %w", err)
	}

	results := g.tree.SearchIntersect(rect)

	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialItem)
		if !ok {
			continue
		}
		if Distance(center, item.Listing.Location()) <= radiusKm {
			hits = append(hits, item.Hit)
		}
	}

	return hits, nil
}

// NearestNeighbors returns up to n listings closest to loc, nearest first.
// Ordering uses planar distance in degrees, which matches great-circle
// order closely at the scale of a single country.
func (g *ListingIndex) NearestNeighbors(loc models.Location, n int) []Hit {
	if n <= 0 {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	results := g.tree.NearestNeighbors(n, rtreego.Point{loc.Lat, loc.Lon})

	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		if item, ok := result.(*spatialItem); ok {
			hits = append(hits, item.Hit)
		}
	}

	return hits
}

// Size returns the number of indexed listings
func (g *ListingIndex) Size() int64 {
	return g.itemCount.Load()
}

// Bounds returns the smallest box holding every indexed listing.
func (g *ListingIndex) Bounds() (models.BoundingBox, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasBounds {
		return models.BoundingBox{}, ErrEmptyIndex
	}
	return g.bounds, nil
}

// Clear removes all listings from the index
func (g *ListingIndex) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tree = rtreego.NewTree(dimensions, minChildren, maxChildren)
	g.itemCount.Store(0)
	g.nextRow = 0
	g.bounds = models.BoundingBox{}
	g.hasBounds = false
}

// Distance is the haversine distance between two locations in kilometers.
func Distance(a, b models.Location) float64 {
	lat1Rad := a.Lat * math.Pi / 180.0
	lon1Rad := a.Lon * math.Pi / 180.0
	lat2Rad := b.Lat * math.Pi / 180.0
	lon2Rad := b.Lon * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadius * c
}
