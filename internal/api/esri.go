package api

import (
	"encoding/json"
	"strings"

	"github.com/paulmach/orb"

	"smart-geo-api/internal/feature"
	"smart-geo-api/internal/geometry"
)

// Esri 字段定义
type esriField struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Alias string `json:"alias,omitempty"`
}

var layerFields = []esriField{
	{Name: "oid", Type: "esriFieldTypeOID", Alias: "Object ID"},
	{Name: "id", Type: "esriFieldTypeString", Alias: "ID"},
	{Name: "name", Type: "esriFieldTypeString", Alias: "Name"},
	{Name: "type", Type: "esriFieldTypeString", Alias: "Type"},
	{Name: "year", Type: "esriFieldTypeInteger", Alias: "Year"},
	{Name: "change", Type: "esriFieldTypeString", Alias: "Change"},
}

type extent struct {
	XMin             float64                    `json:"xmin"`
	YMin             float64                    `json:"ymin"`
	XMax             float64                    `json:"xmax"`
	YMax             float64                    `json:"ymax"`
	SpatialReference *geometry.SpatialReference `json:"spatialReference"`
}

var webMercator = &geometry.SpatialReference{WKID: geometry.WKIDWebMercator}

// 球面 Web Mercator 全图范围
var worldExtent = extent{
	XMin: -20037508.34, YMin: -20037508.34,
	XMax: 20037508.34, YMax: 20037508.34,
	SpatialReference: webMercator,
}

// featureExtent 计算投影后可用几何的包围盒；无可用几何时返回全图范围
func featureExtent(fs []feature.Feature) extent {
	var b orb.Bound
	found := false
	for _, f := range fs {
		g := geometry.Orb(f.Geometry)
		if g == nil {
			continue
		}
		if !found {
			b = g.Bound()
			found = true
			continue
		}
		b = b.Union(g.Bound())
	}
	if !found {
		return worldExtent
	}
	return extent{XMin: b.Min[0], YMin: b.Min[1], XMax: b.Max[0], YMax: b.Max[1], SpatialReference: webMercator}
}

type layerRef struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	ParentLayerID     int    `json:"parentLayerId"`
	DefaultVisibility bool   `json:"defaultVisibility"`
	SubLayerIDs       []int  `json:"subLayerIds"`
	MinScale          int    `json:"minScale"`
	MaxScale          int    `json:"maxScale"`
}

type serviceInfo struct {
	CurrentVersion              float64                    `json:"currentVersion"`
	ServiceDescription          string                     `json:"serviceDescription"`
	HasVersionedData            bool                       `json:"hasVersionedData"`
	SupportsDisconnectedEditing bool                       `json:"supportsDisconnectedEditing"`
	HasStaticData               bool                       `json:"hasStaticData"`
	MaxRecordCount              int                        `json:"maxRecordCount"`
	SupportedQueryFormats       string                     `json:"supportedQueryFormats"`
	Capabilities                string                     `json:"capabilities"`
	Description                 string                     `json:"description"`
	SpatialReference            *geometry.SpatialReference `json:"spatialReference"`
	InitialExtent               extent                     `json:"initialExtent"`
	FullExtent                  extent                     `json:"fullExtent"`
	Layers                      []layerRef                 `json:"layers"`
	Tables                      []any                      `json:"tables"`
}

type symbol struct {
	Type    string  `json:"type"`
	Style   string  `json:"style"`
	Color   []int   `json:"color"`
	Outline outline `json:"outline"`
}

type outline struct {
	Color []int   `json:"color"`
	Width float64 `json:"width"`
}

type drawingInfo struct {
	Renderer struct {
		Type   string `json:"type"`
		Symbol symbol `json:"symbol"`
	} `json:"renderer"`
}

type layerInfo struct {
	ID               int                        `json:"id"`
	Type             string                     `json:"type"`
	Name             string                     `json:"name"`
	GeometryType     string                     `json:"geometryType"`
	ObjectIDField    string                     `json:"objectIdField"`
	SupportsQuery    bool                       `json:"supportsQuery"`
	Capabilities     string                     `json:"capabilities"`
	MaxRecordCount   int                        `json:"maxRecordCount"`
	Fields           []esriField                `json:"fields"`
	DrawingInfo      drawingInfo                `json:"drawingInfo"`
	Extent           extent                     `json:"extent"`
	SpatialReference *geometry.SpatialReference `json:"spatialReference"`
}

func newDrawingInfo() drawingInfo {
	var d drawingInfo
	d.Renderer.Type = "simple"
	d.Renderer.Symbol = symbol{
		Type:    "esriSFS",
		Style:   "esriSFSSolid",
		Color:   []int{255, 255, 204, 128},
		Outline: outline{Color: []int{0, 0, 0, 255}, Width: 1},
	}
	return d
}

type esriFeature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *geometry.Esri `json:"geometry"`
}

type queryResponse struct {
	ObjectIDFieldName string                     `json:"objectIdFieldName"`
	GeometryType      string                     `json:"geometryType"`
	SpatialReference  *geometry.SpatialReference `json:"spatialReference"`
	Fields            []esriField                `json:"fields"`
	Features          []esriFeature              `json:"features"`
}

type countResponse struct {
	Count int `json:"count"`
}

// outFieldSet 解析 outFields；nil 表示全部字段，oid 始终保留
func outFieldSet(raw string) map[string]bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return nil
	}
	set := map[string]bool{"oid": true}
	for _, f := range strings.Split(raw, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f == "*" {
			return nil
		} else if f != "" {
			set[f] = true
		}
	}
	return set
}

func attributes(f feature.Feature, fields map[string]bool) map[string]any {
	var year any
	if f.HasYear {
		year = f.Year
	}
	var change any
	if f.Change != nil {
		change = f.Change.Text
	}
	all := map[string]any{
		"oid":    f.OID,
		"id":     f.ID,
		"name":   f.Name,
		"type":   f.Category,
		"year":   year,
		"change": change,
	}
	if fields == nil {
		return all
	}
	out := make(map[string]any, len(fields))
	for k, v := range all {
		if fields[k] {
			out[k] = v
		}
	}
	return out
}

func toEsriFeatures(fs []feature.Feature, fields map[string]bool, withGeometry bool) []esriFeature {
	out := make([]esriFeature, 0, len(fs))
	for _, f := range fs {
		ef := esriFeature{Attributes: attributes(f, fields)}
		if withGeometry {
			ef.Geometry = geometry.ToEsri(f.Geometry, geometry.WKIDWebMercator)
		}
		out = append(out, ef)
	}
	return out
}

type geoJSONFeature struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type featureCollection struct {
	Type     string           `json:"type"`
	Where    string           `json:"where,omitempty"`
	Features []geoJSONFeature `json:"features"`
}

// toGeoJSON 使用原始经纬度几何；不可用几何输出 null
func toGeoJSON(fs []feature.Feature, fields map[string]bool) (featureCollection, error) {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]geoJSONFeature, 0, len(fs))}
	for _, f := range fs {
		raw, err := geometry.Encode(f.Source)
		if err != nil {
			return fc, err
		}
		props := attributes(f, fields)
		if f.Change != nil {
			props["changed"] = true
		}
		fc.Features = append(fc.Features, geoJSONFeature{
			Type:       "Feature",
			ID:         f.ID,
			Geometry:   raw,
			Properties: props,
		})
	}
	return fc, nil
}
