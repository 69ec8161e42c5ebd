// 包 feature：要素模型、快照对比构建与带新鲜窗口的要素缓存
package feature

import (
	"smart-geo-api/internal/change"
	"smart-geo-api/internal/geometry"
)

// 文档注释：外部表格中的一行
// 约束：列顺序固定为 (id, name, geometry, category, year)；HasYear 为假表示年份无法解析。
type Row struct {
	ID       string
	Name     string
	Geometry string
	Category string
	Year     int
	HasYear  bool
}

// 文档注释：一次刷新构建出的要素
// 背景：每次刷新整体重建，构建后不再修改；同一切片被并发读取。
// 约束：Source 为原始经纬度几何（变化计算与 GeoJSON 输出使用），Geometry 为投影后的几何（Esri 输出使用）。
type Feature struct {
	OID      int // 行序号，从 1 开始
	ID       string
	Name     string
	Category string
	Year     int
	HasYear  bool

	Source   geometry.Geometry
	Geometry geometry.Geometry
	// GeometryErr 非空表示几何不可用，要素其余属性保持完整
	GeometryErr error

	Change *change.Annotation
}

func (f Feature) CategoryValue() string { return f.Category }

func (f Feature) YearValue() (int, bool) { return f.Year, f.HasYear }

func (f Feature) ChangeText() (string, bool) {
	if f.Change == nil {
		return "", false
	}
	return f.Change.Text, true
}
