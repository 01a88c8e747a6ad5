package tui

const (
	compactWidthBreakpoint  = 100
	compactHeightBreakpoint = 24
)

type uiLayout struct {
	Width  int
	Height int

	Compact bool

	HeaderHeight int
	FooterHeight int
	BodyHeight   int

	MainWidth      int
	InspectorWidth int

	CompactMainHeight      int
	CompactInspectorHeight int
}

func computeLayout(width, height int) uiLayout {
	if width < 40 {
		width = 40
	}
	if height < 16 {
		height = 16
	}

	layout := uiLayout{
		Width:        width,
		Height:       height,
		HeaderHeight: 4,
		FooterHeight: 4,
	}

	layout.Compact = width < compactWidthBreakpoint || height < compactHeightBreakpoint
	if layout.Compact {
		layout.MainWidth = width
		layout.InspectorWidth = width
		remaining := maxInt(8, height-layout.HeaderHeight-layout.FooterHeight)
		layout.CompactInspectorHeight = maxInt(4, remaining*2/5)
		layout.CompactMainHeight = maxInt(4, remaining-layout.CompactInspectorHeight)
		layout.BodyHeight = layout.CompactMainHeight
		return layout
	}

	layout.BodyHeight = maxInt(8, height-layout.HeaderHeight-layout.FooterHeight)
	layout.InspectorWidth = clampInt(width*35/100, 34, 56)
	layout.MainWidth = maxInt(40, width-layout.InspectorWidth-1)
	return layout
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
