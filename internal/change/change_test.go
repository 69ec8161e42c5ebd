package change

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-geo-api/internal/geometry"
)

func rect(x0, y0, x1, y1 float64) geometry.Polygon {
	return geometry.Polygon{Rings: orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}}
}

func TestCompute(t *testing.T) {
	t.Run("identical_polygons_have_no_annotation", func(t *testing.T) {
		for _, p := range []geometry.Polygon{
			rect(0, 0, 1, 1),
			rect(8.54, 47.36, 8.56, 47.38),
			{Rings: orb.Polygon{
				{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
				{{2, 2}, {2, 4}, {4, 4}, {4, 2}, {2, 2}},
			}},
		} {
			assert.Nil(t, Compute(p, p))
		}
	})

	t.Run("growth", func(t *testing.T) {
		a := Compute(rect(0, 0, 1, 1.152), rect(0, 0, 1, 1))
		require.NotNil(t, a)
		assert.Equal(t, KindArea, a.Kind)
		assert.Equal(t, "Area changed by 15.2%", a.Text)
		assert.True(t, a.Percent.Equal(decimal.RequireFromString("15.2")))
	})

	t.Run("shrink_is_signed", func(t *testing.T) {
		a := Compute(rect(0, 0, 1, 0.75), rect(0, 0, 1, 1))
		require.NotNil(t, a)
		assert.Equal(t, "Area changed by -25.0%", a.Text)
	})

	t.Run("matches_formula", func(t *testing.T) {
		cur := rect(0, 0, 3, 7)
		prev := rect(1, 1, 4, 5)
		a := Compute(cur, prev)
		require.NotNil(t, a)
		want := (planar.Area(cur.Rings) - planar.Area(prev.Rings)) / planar.Area(prev.Rings) * 100
		assert.InDelta(t, want, a.Percent.InexactFloat64(), 0.05)
		assert.Equal(t, "Area changed by 75.0%", a.Text)
	})

	t.Run("half_rounds_away_from_zero", func(t *testing.T) {
		a := Compute(rect(0, 0, 1, 1.0625), rect(0, 0, 1, 1))
		require.NotNil(t, a)
		assert.Equal(t, "Area changed by 6.3%", a.Text)
	})

	t.Run("moved_shape_with_equal_area", func(t *testing.T) {
		a := Compute(rect(5, 5, 6, 6), rect(0, 0, 1, 1))
		require.NotNil(t, a)
		assert.True(t, a.Percent.IsZero())
	})

	t.Run("moved_far_away", func(t *testing.T) {
		a := Compute(rect(100, 40, 101, 41.5), rect(0, 0, 1, 1))
		require.NotNil(t, a)
		assert.Equal(t, "Area changed by 50.0%", a.Text)
	})

	t.Run("small_feature_keeps_relative_change", func(t *testing.T) {
		a := Compute(rect(0, 0, 1e-6, 1.05e-6), rect(0, 0, 1e-6, 1e-6))
		require.NotNil(t, a)
		assert.Equal(t, "Area changed by 5.0%", a.Text)
	})

	t.Run("zero_area_baseline", func(t *testing.T) {
		degenerate := geometry.Polygon{Rings: orb.Polygon{{{0, 0}, {1, 0}, {2, 0}, {0, 0}}}}
		a := Compute(rect(0, 0, 1, 1), degenerate)
		require.NotNil(t, a)
		assert.Equal(t, KindNoBaseline, a.Kind)
		assert.Equal(t, NoBaselineText, a.Text)
	})

	t.Run("non_polygon_pairs_are_skipped", func(t *testing.T) {
		sq := rect(0, 0, 1, 1)
		mp := geometry.MultiPolygon{Polygons: orb.MultiPolygon{sq.Rings}}
		cases := []struct {
			name      string
			cur, prev geometry.Geometry
		}{
			{"multipolygon", mp, mp},
			{"mixed", sq, mp},
			{"unsupported", geometry.Unsupported{Type: "X"}, sq},
			{"malformed", sq, geometry.Malformed{}},
			{"point", geometry.Point{}, geometry.Point{Coord: orb.Point{1, 1}}},
			{"nil_previous", sq, nil},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				assert.Nil(t, Compute(tc.cur, tc.prev))
			})
		}
	})
}

func TestDiffers(t *testing.T) {
	sq := rect(0, 0, 1, 1).Rings
	assert.False(t, Differs(sq, sq))
	assert.True(t, Differs(sq, rect(0, 0, 1, 2).Rings))
	// 同一环顶点顺序不同
	reversed := orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}
	assert.False(t, Differs(sq, reversed))

	t.Run("disjoint_bounds", func(t *testing.T) {
		assert.True(t, Differs(sq, rect(5, 5, 6, 6).Rings))
		assert.True(t, Differs(rect(5, 5, 6, 6).Rings, sq))
	})

	t.Run("degenerate_side", func(t *testing.T) {
		flat := orb.Polygon{{{0, 0}, {1, 0}, {2, 0}, {0, 0}}}
		assert.True(t, Differs(sq, flat))
		assert.True(t, Differs(flat, sq))
		assert.False(t, Differs(flat, flat))
	})

	t.Run("partial_overlap", func(t *testing.T) {
		assert.True(t, Differs(sq, rect(0.5, 0, 1.5, 1).Rings))
	})
}
