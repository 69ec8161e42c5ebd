// 包 change：当前/上一快照同一要素的面积变化标注
package change

import (
	"math"

	polyclip "github.com/akavel/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/shopspring/decimal"

	"smart-geo-api/internal/geometry"
)

// Kind：标注类别
type Kind int

const (
	KindArea       Kind = iota + 1 // 有对比基线的百分比变化
	KindNoBaseline                 // 上一快照面积为零
)

// NoBaselineText：上一快照面积为零时的固定标注
const NoBaselineText = "New feature (no comparable baseline)"

// 对称差面积不超过 max(两面面积) * diffTolerance 时视为几何未变化
const diffTolerance = 1e-9

// 文档注释：要素变化标注
// 约束：Percent 为保留一位小数后的有符号百分比；KindNoBaseline 时 Percent 无意义。
type Annotation struct {
	Kind    Kind
	Percent decimal.Decimal
	Text    string
}

// 文档注释：比较当前与上一几何，返回标注或 nil
// 背景：仅 Polygon 与 Polygon 参与；其他类型（含 Unsupported/Malformed/类型不一致）直接跳过。
// 约束：对称差为空（见 Differs）返回 nil；面积按原始坐标单位的平面面积计算；上一面积为零返回 NoBaseline 标注。
func Compute(current, previous geometry.Geometry) *Annotation {
	cur, ok := current.(geometry.Polygon)
	if !ok {
		return nil
	}
	prev, ok := previous.(geometry.Polygon)
	if !ok {
		return nil
	}
	if !Differs(cur.Rings, prev.Rings) {
		return nil
	}

	areaCur := math.Abs(planar.Area(cur.Rings))
	areaPrev := math.Abs(planar.Area(prev.Rings))
	if areaPrev == 0 || math.IsNaN(areaPrev) || math.IsInf(areaPrev, 0) {
		return &Annotation{Kind: KindNoBaseline, Text: NoBaselineText}
	}
	pct := decimal.NewFromFloat((areaCur - areaPrev) / areaPrev * 100).Round(1)
	return &Annotation{
		Kind:    KindArea,
		Percent: pct,
		Text:    "Area changed by " + pct.StringFixed(1) + "%",
	}
}

// 文档注释：两个面的对称差非空
// 背景：polyclip 的 XOR 在一侧为空或包围盒不相交时直接返回空结果，因此以两个方向的 DIFFERENCE 面积之和计算对称差。
// 约束：容差相对两面中较大的面积；一侧面积为零时只要另一侧有面积即视为不同；包围盒不相交视为不同。
func Differs(a, b orb.Polygon) bool {
	areaA := math.Abs(planar.Area(a))
	areaB := math.Abs(planar.Area(b))
	tol := math.Max(areaA, areaB) * diffTolerance
	if areaA <= tol || areaB <= tol {
		return math.Abs(areaA-areaB) > tol
	}
	if !a.Bound().Intersects(b.Bound()) {
		return true
	}
	ca, cb := toClip(a), toClip(b)
	area := clipArea(ca.Construct(polyclip.DIFFERENCE, cb)) + clipArea(cb.Construct(polyclip.DIFFERENCE, ca))
	return area > tol
}

func clipArea(p polyclip.Polygon) float64 {
	area := 0.0
	for _, c := range p {
		area += math.Abs(contourArea(c))
	}
	return area
}

func toClip(p orb.Polygon) polyclip.Polygon {
	out := make(polyclip.Polygon, 0, len(p))
	for _, r := range p {
		n := len(r)
		// 闭合点在 polyclip 中是重复顶点
		if n > 1 && r.Closed() {
			n--
		}
		c := make(polyclip.Contour, 0, n)
		for _, pt := range r[:n] {
			c = append(c, polyclip.Point{X: pt[0], Y: pt[1]})
		}
		out = append(out, c)
	}
	return out
}

// 鞋带公式
func contourArea(c polyclip.Contour) float64 {
	s := 0.0
	for i := range c {
		j := (i + 1) % len(c)
		s += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return s / 2
}
