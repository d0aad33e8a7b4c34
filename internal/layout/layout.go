// Package layout maps tree size to the rendering strategy and the sizing
// knobs the encoder uses.
package layout

// Strategy is the structure class written on the root topic.
type Strategy string

const (
	StrategyMap        Strategy = "org.xmind.ui.map.unbalanced"
	StrategyLogicRight Strategy = "org.xmind.ui.logic.right"
	StrategyTreeRight  Strategy = "org.xmind.ui.tree.right"
	StrategyFishbone   Strategy = "org.xmind.ui.fishbone.leftHeaded"
)

// Upper bounds (inclusive) of each size band.
const (
	MapMaxNodes       = 100
	LogicMaxNodes     = 1000
	TreeMaxNodes      = 5000
	WideLogicMaxNodes = 10000
)

// Select picks the strategy for a tree of count nodes.
func Select(count int) Strategy {
	switch {
	case count <= MapMaxNodes:
		return StrategyMap
	case count <= LogicMaxNodes:
		return StrategyLogicRight
	case count <= TreeMaxNodes:
		return StrategyTreeRight
	case count <= WideLogicMaxNodes:
		return StrategyLogicRight
	default:
		return StrategyFishbone
	}
}

func (s Strategy) String() string { return string(s) }

// MaxRelationshipsCap bounds the cosmetic cross-links added to a sheet.
const MaxRelationshipsCap = 30

// MaxRelationships is the relationship budget for count nodes: one per
// hundred nodes, capped.
func MaxRelationships(count int) int {
	return min(MaxRelationshipsCap, count/100)
}

const (
	minWriterBuffer = 64 << 10
	maxWriterBuffer = 16 << 20
	bytesPerNode    = 512

	minPadding     = 2 << 20
	paddingPerNode = 500
)

// BufferSize is the streaming writer buffer for a tree of count nodes.
func BufferSize(count int) int {
	return max(minWriterBuffer, min(maxWriterBuffer, count*bytesPerNode))
}

// PaddingSize is the size of the padding attachment for count nodes.
func PaddingSize(count int) int64 {
	return int64(max(minPadding, count*paddingPerNode))
}
