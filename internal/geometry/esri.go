package geometry

import (
	"github.com/paulmach/orb"
)

// WKIDWebMercator：Esri 对球面 Web Mercator 的空间参考编号
const WKIDWebMercator = 102100

// WKIDWGS84：Esri 对经纬度的空间参考编号
const WKIDWGS84 = 4326

type SpatialReference struct {
	WKID int `json:"wkid"`
}

// 文档注释：Esri JSON 几何
// 约束：面用 rings，线用 paths，点用 x/y；同一值只设置其中一种。
type Esri struct {
	X                *float64          `json:"x,omitempty"`
	Y                *float64          `json:"y,omitempty"`
	Paths            [][][2]float64    `json:"paths,omitempty"`
	Rings            [][][2]float64    `json:"rings,omitempty"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

// ToEsri：MultiPolygon 的各面环按序展平为 rings；不可用几何返回 nil
func ToEsri(g Geometry, wkid int) *Esri {
	out := &Esri{SpatialReference: &SpatialReference{WKID: wkid}}
	switch v := g.(type) {
	case Point:
		x, y := v.Coord[0], v.Coord[1]
		out.X, out.Y = &x, &y
	case LineString:
		out.Paths = [][][2]float64{pointsOf(v.Coords)}
	case Polygon:
		out.Rings = ringsOf(v.Rings)
	case MultiPolygon:
		rings := make([][][2]float64, 0, len(v.Polygons))
		for _, p := range v.Polygons {
			rings = append(rings, ringsOf(p)...)
		}
		out.Rings = rings
	default:
		return nil
	}
	return out
}

// 文档注释：Esri 几何转回封闭和类型
// 约束：rings 整体视为一个 Polygon（不区分外环归属）；paths 仅取第一条；其余返回 Unsupported。
func FromEsri(e *Esri) Geometry {
	if e == nil {
		return Unsupported{Type: ""}
	}
	switch {
	case len(e.Rings) > 0:
		p := make(orb.Polygon, 0, len(e.Rings))
		for _, r := range e.Rings {
			p = append(p, orb.Ring(toPoints(r)))
		}
		return Polygon{Rings: p, Corrupt: !ringsValid(p)}
	case len(e.Paths) > 0:
		return LineString{Coords: orb.LineString(toPoints(e.Paths[0]))}
	case e.X != nil && e.Y != nil:
		return Point{Coord: orb.Point{*e.X, *e.Y}}
	}
	return Unsupported{Type: "esri"}
}

func ringsOf(p orb.Polygon) [][][2]float64 {
	out := make([][][2]float64, 0, len(p))
	for _, r := range p {
		out = append(out, pointsOf(r))
	}
	return out
}

func pointsOf[T ~[]orb.Point](pts T) [][2]float64 {
	out := make([][2]float64, len(pts))
	for i, pt := range pts {
		out[i] = [2]float64(pt)
	}
	return out
}

func toPoints(in [][2]float64) []orb.Point {
	out := make([]orb.Point, len(in))
	for i, c := range in {
		out[i] = orb.Point(c)
	}
	return out
}
