package prompt

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/maskseg/model"
)

func TestCollector_ToOriginal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scale  float64
		dx, dy float64
		want   image.Point
	}{
		{name: "原尺寸", scale: 1, dx: 12, dy: 34, want: image.Pt(12, 34)},
		{name: "缩小一半", scale: 0.5, dx: 10, dy: 21, want: image.Pt(20, 42)},
		{name: "四舍五入", scale: 0.3, dx: 10, dy: 20, want: image.Pt(33, 67)},
		{name: "小数显示坐标", scale: 0.8, dx: 10.3, dy: 0.2, want: image.Pt(13, 0)},
		{name: "非法缩放回退为1", scale: 0, dx: 7, dy: 8, want: image.Pt(7, 8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := NewCollector()
			c.SetScale(tt.scale)
			assert.Equal(t, tt.want, c.ToOriginal(tt.dx, tt.dy))
		})
	}
}

func TestCollector_Points(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.SetScale(0.5)
	assert.Equal(t, StateIdle, c.State())

	c.Press(10, 10)
	assert.Equal(t, StateCollectingPoints, c.State())
	c.SetLabel(model.LabelNegative)
	c.Press(20, 5)
	c.Release(20, 5) // 点模式下松开无效果
	c.Drag(30, 30)

	assert.Equal(t, []model.Point{
		{X: 20, Y: 20, Label: model.LabelPositive},
		{X: 40, Y: 10, Label: model.LabelNegative},
	}, c.Points())

	ov := c.Overlay()
	assert.Equal(t, []Marker{
		{Pos: image.Pt(10, 10), Label: model.LabelPositive},
		{Pos: image.Pt(20, 5), Label: model.LabelNegative},
	}, ov.Markers)
	assert.Nil(t, ov.Rect)

	p, err := c.Prompt()
	require.NoError(t, err)
	assert.Len(t, p.Points, 2)
	assert.Nil(t, p.Box)
}

func TestCollector_Box(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.SetMode(ModeBox)
	assert.Equal(t, ModeBox, c.Mode())

	c.Press(10, 10)
	assert.Equal(t, StateDraggingBox, c.State())
	c.Drag(30, 40)
	assert.Equal(t, &image.Rectangle{Min: image.Pt(10, 10), Max: image.Pt(30, 40)}, c.Overlay().Rect)
	assert.Nil(t, c.Box(), "拖动中还没有框")

	c.Release(50, 70)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, &model.Box{X1: 10, Y1: 10, X2: 50, Y2: 70}, c.Box())

	p, err := c.Prompt()
	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 50, 70}, p.Box.Slice())
	assert.Empty(t, p.Points)
}

func TestCollector_BoxReversedDragAndScale(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.SetScale(0.5)
	c.SetMode(ModeBox)

	c.Press(40, 35)
	c.Drag(20, 20)
	assert.Equal(t, &image.Rectangle{Min: image.Pt(20, 20), Max: image.Pt(40, 35)}, c.Overlay().Rect)
	c.Release(5, 5)
	assert.Equal(t, &model.Box{X1: 10, Y1: 10, X2: 80, Y2: 70}, c.Box())

	// 再按一次替换旧框
	c.Press(0, 0)
	assert.Nil(t, c.Box())
	c.Release(2, 2)
	assert.Equal(t, &model.Box{X1: 0, Y1: 0, X2: 4, Y2: 4}, c.Box())
}

// 框角点与点模式走同一个换算，不先取整到显示像素
func TestCollector_BoxFractionalCorners(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.SetScale(0.5)
	c.SetMode(ModeBox)
	c.Press(10.4, 10.4)
	c.Release(40, 40)
	require.NotNil(t, c.Box())
	assert.Equal(t, []int{21, 21, 80, 80}, c.Box().Slice())

	p := NewCollector()
	p.SetScale(0.5)
	p.Press(10.4, 10.4)
	pt := p.Points()[0]
	assert.Equal(t, c.Box().X1, pt.X)
	assert.Equal(t, c.Box().Y1, pt.Y)
}

func TestCollector_ReleaseWithoutPress(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.SetMode(ModeBox)
	c.Drag(5, 5)
	c.Release(5, 5)
	assert.Nil(t, c.Box())
	_, err := c.Prompt()
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestCollector_ClearAndModeSwitch(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.Press(1, 1)
	c.Press(2, 2)
	require.Len(t, c.Points(), 2)

	c.Clear()
	assert.Empty(t, c.Points())
	assert.True(t, c.Overlay().IsEmpty())
	assert.Equal(t, StateIdle, c.State())
	_, err := c.Prompt()
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	c.Press(3, 3)
	c.SetMode(ModeBox)
	assert.Empty(t, c.Points())
	c.Press(0, 0)
	c.Release(4, 4)
	require.NotNil(t, c.Box())

	c.SetMode(ModePoint)
	assert.Nil(t, c.Box())
	assert.True(t, c.Overlay().IsEmpty())

	// 点模式下不会拿到旧框
	_, err = c.Prompt()
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestCollector_PointsAreCopies(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.Press(1, 1)
	pts := c.Points()
	pts[0].X = 99
	assert.Equal(t, 1, c.Points()[0].X)
}

func TestStateAndModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "collecting-points", StateCollectingPoints.String())
	assert.Equal(t, "dragging-box", StateDraggingBox.String())
	assert.Equal(t, "point", ModePoint.String())
	assert.Equal(t, "box", ModeBox.String())
}
