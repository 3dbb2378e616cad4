// Package shapefile reads and writes coastline and land outlines stored as
// ESRI shapefiles in geographic coordinates.
package shapefile

import (
	"fmt"

	shp "github.com/jonas-p/go-shp"
)

// Point is a geographic position in degrees.
type Point struct {
	Lon, Lat float64
}

// Line is one polyline part or polygon ring.
type Line []Point

// Read returns every part of every polyline or polygon in the file.
// Other shape types are skipped.
func Read(path string) ([]Line, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", path, err)
	}
	defer r.Close()

	var lines []Line
	for r.Next() {
		_, shape := r.Shape()
		switch s := shape.(type) {
		case *shp.PolyLine:
			lines = append(lines, split(s.Parts, s.Points)...)
		case *shp.Polygon:
			lines = append(lines, split(s.Parts, s.Points)...)
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shapefile %s: %w", path, err)
	}
	return lines, nil
}

func split(parts []int32, points []shp.Point) []Line {
	out := make([]Line, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		line := make(Line, 0, end-start)
		for _, p := range points[start:end] {
			line = append(line, Point{Lon: p.X, Lat: p.Y})
		}
		out = append(out, line)
	}
	return out
}

// WritePolylines writes lines as single-part polyline records.
func WritePolylines(path string, lines []Line) error {
	return write(path, shp.POLYLINE, lines)
}

// WritePolygons writes closed rings as single-part polygon records.
func WritePolygons(path string, rings []Line) error {
	return write(path, shp.POLYGON, rings)
}

func write(path string, shapeType shp.ShapeType, lines []Line) error {
	w, err := shp.Create(path, shapeType)
	if err != nil {
		return fmt.Errorf("failed to create shapefile %s: %w", path, err)
	}
	defer w.Close()

	for _, l := range lines {
		pts := make([]shp.Point, len(l))
		for i, p := range l {
			pts[i] = shp.Point{X: p.Lon, Y: p.Lat}
		}
		pl := shp.NewPolyLine([][]shp.Point{pts})
		if shapeType == shp.POLYGON {
			w.Write((*shp.Polygon)(pl))
		} else {
			w.Write(pl)
		}
	}
	return nil
}
