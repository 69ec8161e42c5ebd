package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// EarthRadius：球面 Web Mercator 半径（米）
const EarthRadius = 6378137.0

// 纬度超过该值时 y 趋于无穷，JSON 无法表达
const maxLatitude = 85.05112877980659

// 文档注释：经纬度到球面 Web Mercator 的正向投影
// 约束：x = R·λ，y = R·ln(tan(π/4 + φ/2))；λ、φ 为弧度；纬度截断到 ±maxLatitude；无逆投影。
func Project(p orb.Point) orb.Point {
	lat := math.Max(-maxLatitude, math.Min(maxLatitude, p[1]))
	lambda := p[0] * math.Pi / 180
	phi := lat * math.Pi / 180
	return orb.Point{
		EarthRadius * lambda,
		EarthRadius * math.Log(math.Tan(math.Pi/4+phi/2)),
	}
}

// 文档注释：递归投影全部坐标，返回新值
// 约束：project.Geometry 就地修改，先 Clone，入参不被改动；Unsupported/Malformed 原样返回。
func ProjectGeometry(g Geometry) Geometry {
	og := Orb(g)
	if og == nil {
		return g
	}
	out := project.Geometry(orb.Clone(og), Project)
	switch v := g.(type) {
	case Point:
		return Point{Coord: out.(orb.Point)}
	case LineString:
		return LineString{Coords: out.(orb.LineString)}
	case Polygon:
		return Polygon{Rings: out.(orb.Polygon), Corrupt: v.Corrupt}
	case MultiPolygon:
		return MultiPolygon{Polygons: out.(orb.MultiPolygon), Corrupt: v.Corrupt}
	}
	return g
}
