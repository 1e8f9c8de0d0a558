package domain

// CRS identifies the coordinate reference system positions are measured in.
// It is treated as an opaque identifier; coordinates are never reprojected.
type CRS string

// DefaultCRS is assumed when a track or geometry does not declare one.
const DefaultCRS CRS = "urn:ogc:def:crs:OGC:1.3:CRS84"

// Position is a coordinate tuple: x, y and optionally z.
type Position []float64

// Clone returns an independent copy of the position.
func (p Position) Clone() Position {
	if p == nil {
		return nil
	}
	return append(Position(nil), p...)
}

// NDims returns the coordinate dimensionality (2 or 3; 0 for empty).
func (p Position) NDims() int {
	if len(p) >= 3 {
		return 3
	}
	return len(p)
}

// GeometryType enumerates supported static geometry kinds.
type GeometryType string

// Static geometry kinds carried on moving features.
const (
	GeometryPoint   GeometryType = "Point"
	GeometryPolygon GeometryType = "Polygon"
)

// Ring is a closed linear ring of a polygon.
type Ring []Position

// Geometry is a static point or polygon in some CRS.
type Geometry struct {
	Type    GeometryType `json:"type"`
	CRS     CRS          `json:"crs,omitempty"`
	Point   Position     `json:"point,omitempty"`
	Polygon []Ring       `json:"polygon,omitempty"`
}

// Clone returns an independent copy of the geometry.
func (g Geometry) Clone() Geometry {
	cp := g
	cp.Point = g.Point.Clone()
	if g.Polygon != nil {
		cp.Polygon = make([]Ring, len(g.Polygon))
		for i, ring := range g.Polygon {
			r := make(Ring, len(ring))
			for j, pos := range ring {
				r[j] = pos.Clone()
			}
			cp.Polygon[i] = r
		}
	}
	return cp
}

// EachPosition invokes fn for every coordinate tuple of the geometry.
func (g Geometry) EachPosition(fn func(Position)) {
	switch g.Type {
	case GeometryPoint:
		if len(g.Point) > 0 {
			fn(g.Point)
		}
	case GeometryPolygon:
		for _, ring := range g.Polygon {
			for _, pos := range ring {
				fn(pos)
			}
		}
	}
}

// NDims returns the maximum coordinate dimensionality observed in the geometry.
func (g Geometry) NDims() int {
	max := 0
	g.EachPosition(func(p Position) {
		if n := p.NDims(); n > max {
			max = n
		}
	})
	return max
}

// BBox2D is a planar bounding box: component-wise min/max over x and y.
type BBox2D struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Extend widens the box to cover p. It returns the extended box so callers
// can fold positions through it.
func (b BBox2D) Extend(p Position) BBox2D {
	if len(p) < 2 {
		return b
	}
	if p[0] < b.MinX {
		b.MinX = p[0]
	}
	if p[0] > b.MaxX {
		b.MaxX = p[0]
	}
	if p[1] < b.MinY {
		b.MinY = p[1]
	}
	if p[1] > b.MaxY {
		b.MaxY = p[1]
	}
	return b
}

// NewBBox2D returns the degenerate box covering only p.
func NewBBox2D(p Position) BBox2D {
	return BBox2D{MinX: p[0], MinY: p[1], MaxX: p[0], MaxY: p[1]}
}

// BBox3D is a volumetric bounding box over x, y and z.
type BBox3D struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MinZ float64 `json:"min_z"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
	MaxZ float64 `json:"max_z"`
}

// Extend widens the box to cover p (which must carry three components).
func (b BBox3D) Extend(p Position) BBox3D {
	if len(p) < 3 {
		return b
	}
	if p[0] < b.MinX {
		b.MinX = p[0]
	}
	if p[0] > b.MaxX {
		b.MaxX = p[0]
	}
	if p[1] < b.MinY {
		b.MinY = p[1]
	}
	if p[1] > b.MaxY {
		b.MaxY = p[1]
	}
	if p[2] < b.MinZ {
		b.MinZ = p[2]
	}
	if p[2] > b.MaxZ {
		b.MaxZ = p[2]
	}
	return b
}

// NewBBox3D returns the degenerate box covering only p.
func NewBBox3D(p Position) BBox3D {
	return BBox3D{MinX: p[0], MinY: p[1], MinZ: p[2], MaxX: p[0], MaxY: p[1], MaxZ: p[2]}
}
