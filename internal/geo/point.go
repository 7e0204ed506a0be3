package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is the spatial reference used for stored points.
const SRID = 4326

// EncodeEWKB encodes p as a little-endian EWKB point with SRID 4326.
// Longitude is X.
func EncodeEWKB(p Point) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{p.Lng, p.Lat}).SetSRID(SRID)

	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode EWKB")
	}
	return data, nil
}

// DecodeEWKB parses an EWKB point produced by EncodeEWKB.
func DecodeEWKB(data []byte) (Point, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return Point{}, eris.Wrap(err, "geo: decode EWKB")
	}

	pt, ok := g.(*geom.Point)
	if !ok {
		return Point{}, eris.Errorf("geo: expected point, got %T", g)
	}
	return Point{Lat: pt.Y(), Lng: pt.X()}, nil
}
