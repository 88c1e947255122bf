// Package zones loads zone partitions from shapefiles and rasterizes them
// onto the run extent. Zones serve two independent roles — base zones for
// demand tabulation and aggregation zones for flow/supply/use tables — and
// are loaded as distinct layers.
package zones

import (
	"strconv"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/greenfield-eo/recmap/internal/raster"
)

// Polygon is one zone feature: an id and its rings as flat XY coordinate
// slices. Holes are handled by the even-odd rule during rasterization.
type Polygon struct {
	ID    int
	rings [][]float64
}

// NewPolygon builds a zone polygon from flat XY rings. Exposed for tests and
// for callers that assemble zones without a shapefile.
func NewPolygon(id int, rings [][]float64) Polygon {
	return Polygon{ID: id, rings: rings}
}

// LoadShapefile reads zone polygons from a shapefile, taking zone ids from
// the named integer attribute field.
func LoadShapefile(path, idField string) ([]Polygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zones: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, idField)
	if idIdx < 0 {
		return nil, eris.Errorf("zones: field %q not found in %s", idField, path)
	}

	log := zap.L().With(zap.String("component", "zones"))
	var polygons []Polygon
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly.NumParts == 0 {
			continue
		}

		raw := strings.TrimSpace(reader.Attribute(idIdx))
		id, err := strconv.Atoi(raw)
		if err != nil {
			log.Warn("zones: skipping feature with non-integer id", zap.String("value", raw))
			continue
		}

		polygons = append(polygons, Polygon{ID: id, rings: shapeRings(poly)})
	}

	log.Info("zone layer loaded", zap.String("path", path), zap.Int("zones", len(polygons)))
	return polygons, nil
}

// Rasterize burns zone ids onto the run extent: a cell takes the id of the
// polygon containing its center, no-data where no polygon matches. Later
// polygons win on overlap, matching painter's order.
func Rasterize(polygons []Polygon, extent raster.Extent) (*raster.Grid, error) {
	if len(polygons) == 0 {
		return nil, eris.New("zones: no polygons to rasterize")
	}
	out := raster.New(extent.Rows, extent.Cols)
	for row := 0; row < extent.Rows; row++ {
		for col := 0; col < extent.Cols; col++ {
			x, y := extent.CellCenter(row, col)
			for _, p := range polygons {
				if p.contains(x, y) {
					out.Set(row, col, float64(p.ID))
				}
			}
		}
	}
	return out, nil
}

// contains applies the even-odd rule: inside an odd number of rings means
// inside the polygon (outer ring minus holes).
func (p Polygon) contains(x, y float64) bool {
	inside := 0
	coord := geom.Coord{x, y}
	for _, ring := range p.rings {
		if xy.IsPointInRing(geom.XY, coord, ring) {
			inside++
		}
	}
	return inside%2 == 1
}

func shapeRings(poly *shp.Polygon) [][]float64 {
	rings := make([][]float64, 0, poly.NumParts)
	for part := int32(0); part < poly.NumParts; part++ {
		start := poly.Parts[part]
		end := int32(len(poly.Points))
		if part+1 < poly.NumParts {
			end = poly.Parts[part+1]
		}
		ring := make([]float64, 0, 2*(end-start))
		for i := start; i < end; i++ {
			ring = append(ring, poly.Points[i].X, poly.Points[i].Y)
		}
		rings = append(rings, ring)
	}
	return rings
}

func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
