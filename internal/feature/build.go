package feature

import (
	"errors"

	"smart-geo-api/internal/change"
	"smart-geo-api/internal/geometry"
	"smart-geo-api/internal/logger"
	"smart-geo-api/internal/metrics"
)

// 文档注释：由当前与上一快照构建要素集合
// 背景：上一快照按 id 建索引（重复 id 后者覆盖），当前快照逐行解码、投影并计算变化标注。
// 约束：输出顺序即当前快照行序；单行几何问题只影响该要素，不中断整体构建。
func Build(current, previous []Row) []Feature {
	l := logger.L()
	prev := make(map[string]geometry.Geometry, len(previous))
	for _, r := range previous {
		g, err := geometry.Decode(r.Geometry)
		if err != nil {
			l.Debug("previous_geometry_malformed", "id", r.ID, "err", err)
		}
		prev[r.ID] = g
	}

	out := make([]Feature, 0, len(current))
	for i, r := range current {
		src, err := geometry.Decode(r.Geometry)
		outcome := geometry.Outcome(src)
		metrics.FeaturesGeometryTotal.WithLabelValues(outcome).Inc()
		switch {
		case err != nil:
			l.Warn("geometry_malformed", "id", r.ID, "row", i+1, "err", err)
		case outcome == "unsupported":
			l.Warn("geometry_unsupported", "id", r.ID, "type", src.(geometry.Unsupported).Type)
		case outcome == "corrupt":
			l.Warn("geometry_corrupt", "id", r.ID, "row", i+1)
		}

		f := Feature{
			OID:         i + 1,
			ID:          r.ID,
			Name:        r.Name,
			Category:    r.Category,
			Year:        r.Year,
			HasYear:     r.HasYear,
			Source:      src,
			Geometry:    geometry.ProjectGeometry(src),
			GeometryErr: err,
		}
		if pg, ok := prev[r.ID]; ok {
			f.Change = change.Compute(src, pg)
			if f.Change != nil && f.Change.Kind == change.KindNoBaseline {
				l.Debug("change_no_baseline", "id", r.ID)
			}
		}
		out = append(out, f)
	}
	return out
}

// Malformed 统计几何不可用的要素数
func Malformed(fs []Feature) int {
	n := 0
	for _, f := range fs {
		if errors.Is(f.GeometryErr, geometry.ErrMalformedGeometry) {
			n++
		}
	}
	return n
}

// Changed 返回带变化标注的要素，保持顺序
func Changed(fs []Feature) []Feature {
	out := make([]Feature, 0)
	for _, f := range fs {
		if f.Change != nil {
			out = append(out, f)
		}
	}
	return out
}
