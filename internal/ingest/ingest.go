// 包 ingest：Esri JSON 要素集转换为行并写入行数据后端，作为离线数据通道
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"smart-geo-api/internal/feature"
	"smart-geo-api/internal/geometry"
	"smart-geo-api/internal/logger"
	"smart-geo-api/internal/source"
)

// Esri 几何类型名
const (
	GeometryPolygon  = "esriGeometryPolygon"
	GeometryPolyline = "esriGeometryPolyline"
	GeometryPoint    = "esriGeometryPoint"
)

// FeatureSet：Esri JSON 查询结果（或导出文件）中用到的部分
type FeatureSet struct {
	GeometryType string `json:"geometryType"`
	Fields       []struct {
		Name string `json:"name"`
	} `json:"fields"`
	Features []EsriFeature `json:"features"`
}

type EsriFeature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *geometry.Esri `json:"geometry"`
}

// Mapping：行各列取自哪个属性；Category 为空时使用 DefaultCategory
type Mapping struct {
	ID              string
	Name            string
	Category        string
	Year            string
	DefaultCategory string
}

// Stats 转换统计
type Stats struct {
	Rows          int
	EmptyGeometry int
	GeneratedIDs  int
}

var ErrNoFeatures = errors.New("no features array found, input is not Esri JSON")

// ReadFeatureSet 解析 Esri JSON；数字属性保留原文
func ReadFeatureSet(r io.Reader) (*FeatureSet, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var fs FeatureSet
	if err := dec.Decode(&fs); err != nil {
		return nil, fmt.Errorf("decode esri json: %w", err)
	}
	if fs.Features == nil {
		return nil, ErrNoFeatures
	}
	return &fs, nil
}

// HasField 字段列表为空时视为不可校验，返回 true
func (fs *FeatureSet) HasField(name string) bool {
	if len(fs.Fields) == 0 {
		return true
	}
	for _, f := range fs.Fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// 文档注释：打开本地文件或 http(s) 地址
// 约束：远端非 200 视为错误；调用方负责关闭。
func Open(ctx context.Context, src string) (io.ReadCloser, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.Open(src)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: bad status %d", src, resp.StatusCode)
	}
	return resp.Body, nil
}

// 文档注释：要素集转换为行
// 背景：几何按要素集声明的 geometryType 选取，面取全部 rings，线取第一条 path，点取 x/y；
// 与声明不符或缺失时几何列留空，读取端会将其视为不可用几何并保留属性。
// 约束：ID 属性缺失时以 1 起的序号代替；行序与要素顺序一致。
func (fs *FeatureSet) Rows(m Mapping) ([]feature.Row, Stats) {
	var st Stats
	rows := make([]feature.Row, 0, len(fs.Features))
	for i, f := range fs.Features {
		cells := []string{
			attr(f.Attributes, m.ID),
			attr(f.Attributes, m.Name),
			encodeGeometry(fs.GeometryType, f.Geometry),
			attr(f.Attributes, m.Category),
			attr(f.Attributes, m.Year),
		}
		if cells[0] == "" {
			cells[0] = fmt.Sprint(i + 1)
			st.GeneratedIDs++
		}
		if cells[2] == "" {
			st.EmptyGeometry++
		}
		if cells[3] == "" {
			cells[3] = m.DefaultCategory
		}
		rows = append(rows, source.ParseRow(cells))
	}
	st.Rows = len(rows)
	return rows, st
}

func attr(attrs map[string]any, key string) string {
	if key == "" {
		return ""
	}
	v, ok := attrs[key]
	if !ok {
		// 字段名大小写不一致时回退
		for k, val := range attrs {
			if strings.EqualFold(k, key) {
				v, ok = val, true
				break
			}
		}
	}
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func encodeGeometry(geometryType string, e *geometry.Esri) string {
	if e == nil {
		return ""
	}
	g := geometry.FromEsri(e)
	switch g.(type) {
	case geometry.Polygon:
		if geometryType != GeometryPolygon {
			return ""
		}
	case geometry.LineString:
		if geometryType != GeometryPolyline {
			return ""
		}
	case geometry.Point:
		if geometryType != GeometryPoint {
			return ""
		}
	default:
		return ""
	}
	raw, err := geometry.Encode(g)
	if err != nil {
		return ""
	}
	return string(raw)
}

// 文档注释：写入行数据后端
// 背景：写入端自行分批（表格 100 行一批，关系库 5000 行一次提交），此处只负责计时与日志。
func Upload(ctx context.Context, sink source.RowSink, rangeID string, rows []feature.Row) error {
	l := logger.L()
	l.Info("upload_start", "range", rangeID, "rows", len(rows))
	start := time.Now()
	if err := sink.WriteRows(ctx, rangeID, rows); err != nil {
		l.Error("upload_error", "range", rangeID, "err", err)
		return err
	}
	l.Info("upload_done", "range", rangeID, "rows", len(rows), "ms", time.Since(start).Milliseconds())
	return nil
}
