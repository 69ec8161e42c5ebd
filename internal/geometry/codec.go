// 包 geometry：行内几何载荷的编解码、投影与 Esri 线格式转换
package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrMalformedGeometry：载荷不是 JSON 对象，或缺少 type/coordinates
var ErrMalformedGeometry = errors.New("malformed geometry")

// 文档注释：解码后的几何值（封闭和类型）
// 背景：行数据中的几何为 GeoJSON 字符串，形态各异；统一收敛为有限变体，调用方以类型分支处理。
// 约束：变体仅有 Point/LineString/Polygon/MultiPolygon/Unsupported/Malformed；坐标为 [lon, lat] 或投影后的 [x, y]。
type Geometry interface {
	isGeometry()
}

type Point struct {
	Coord orb.Point
}

type LineString struct {
	Coords orb.LineString
}

// Polygon：第一环为外环，其余为洞；环未闭合或点数不足时 Corrupt 置位，但仍按 Polygon 参与计算
type Polygon struct {
	Rings   orb.Polygon
	Corrupt bool
}

type MultiPolygon struct {
	Polygons orb.MultiPolygon
	Corrupt  bool
}

// Unsupported：未知或不参与空间计算的 type；非错误
type Unsupported struct {
	Type string
}

// Malformed：载荷不可用；要素保留，几何标记为不可用
type Malformed struct {
	Err error
}

func (Point) isGeometry()        {}
func (LineString) isGeometry()   {}
func (Polygon) isGeometry()      {}
func (MultiPolygon) isGeometry() {}
func (Unsupported) isGeometry()  {}
func (Malformed) isGeometry()    {}

type envelope struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// 文档注释：解析行内几何字符串
// 约束：不可解析时返回 Malformed 与包装 ErrMalformedGeometry 的错误；未知 type 返回 Unsupported 且无错误。
func Decode(raw string) (Geometry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return malformed(errors.New("empty payload"))
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return malformed(err)
	}
	coords := strings.TrimSpace(string(env.Coordinates))
	hasCoords := coords != "" && coords != "null"
	if env.Type == "" {
		if hasCoords {
			return malformed(errors.New("coordinates without type"))
		}
		return malformed(errors.New("missing type and coordinates"))
	}

	switch env.Type {
	case "Point", "LineString", "Polygon", "MultiPolygon":
	default:
		return Unsupported{Type: env.Type}, nil
	}
	if !hasCoords {
		return malformed(fmt.Errorf("%s without coordinates", env.Type))
	}

	g, err := geojson.UnmarshalGeometry([]byte(raw))
	if err != nil {
		return malformed(err)
	}
	switch c := g.Coordinates.(type) {
	case orb.Point:
		return Point{Coord: c}, nil
	case orb.LineString:
		return LineString{Coords: c}, nil
	case orb.Polygon:
		return Polygon{Rings: c, Corrupt: !ringsValid(c)}, nil
	case orb.MultiPolygon:
		corrupt := len(c) == 0
		for _, p := range c {
			if !ringsValid(p) {
				corrupt = true
				break
			}
		}
		return MultiPolygon{Polygons: c, Corrupt: corrupt}, nil
	}
	return malformed(fmt.Errorf("unexpected coordinates for %s", env.Type))
}

func malformed(err error) (Geometry, error) {
	werr := fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
	return Malformed{Err: werr}, werr
}

// 环闭合且至少四个点
func ringsValid(p orb.Polygon) bool {
	if len(p) == 0 {
		return false
	}
	for _, r := range p {
		if len(r) < 4 || !r.Closed() {
			return false
		}
	}
	return true
}

// Orb：返回底层 orb 几何；Unsupported/Malformed 返回 nil
func Orb(g Geometry) orb.Geometry {
	switch v := g.(type) {
	case Point:
		return v.Coord
	case LineString:
		return v.Coords
	case Polygon:
		return v.Rings
	case MultiPolygon:
		return v.Polygons
	}
	return nil
}

// Usable：是否携带可输出的坐标
func Usable(g Geometry) bool {
	return Orb(g) != nil
}

// Corrupt：Polygon/MultiPolygon 的环结构异常
func Corrupt(g Geometry) bool {
	switch v := g.(type) {
	case Polygon:
		return v.Corrupt
	case MultiPolygon:
		return v.Corrupt
	}
	return false
}

// Encode：序列化为 GeoJSON geometry；不可用几何输出 null
func Encode(g Geometry) ([]byte, error) {
	og := Orb(g)
	if og == nil {
		return []byte("null"), nil
	}
	return geojson.NewGeometry(og).MarshalJSON()
}

// Outcome：几何解码结果分类，用于日志与指标
func Outcome(g Geometry) string {
	switch v := g.(type) {
	case Malformed:
		return "malformed"
	case Unsupported:
		return "unsupported"
	case Polygon:
		if v.Corrupt {
			return "corrupt"
		}
	case MultiPolygon:
		if v.Corrupt {
			return "corrupt"
		}
	}
	return "ok"
}
