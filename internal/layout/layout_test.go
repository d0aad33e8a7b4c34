package layout

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestSelect_Boundaries(t *testing.T) {
	tests := []struct {
		count int
		want  Strategy
	}{
		{1, StrategyMap},
		{100, StrategyMap},
		{101, StrategyLogicRight},
		{1000, StrategyLogicRight},
		{1001, StrategyTreeRight},
		{1500, StrategyTreeRight},
		{5000, StrategyTreeRight},
		{5001, StrategyLogicRight},
		{10000, StrategyLogicRight},
		{10001, StrategyFishbone},
		{250000, StrategyFishbone},
	}
	for _, tt := range tests {
		if got := Select(tt.count); got != tt.want {
			t.Errorf("Select(%d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestMaxRelationships(t *testing.T) {
	assert.Equal(t, 0, MaxRelationships(99))
	assert.Equal(t, 1, MaxRelationships(100))
	assert.Equal(t, 15, MaxRelationships(1500))
	assert.Equal(t, 30, MaxRelationships(3000))
	assert.Equal(t, 30, MaxRelationships(1_000_000))
}

func TestBufferSize_GrowsWithCountWithinBounds(t *testing.T) {
	assert.Equal(t, minWriterBuffer, BufferSize(1))
	assert.Equal(t, 1000*bytesPerNode, BufferSize(1000))
	assert.Equal(t, maxWriterBuffer, BufferSize(10_000_000))
}

func TestPaddingSize(t *testing.T) {
	assert.Equal(t, int64(2<<20), PaddingSize(10))
	assert.Equal(t, int64(20000*500), PaddingSize(20000))
}

func TestSelectProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("select is deterministic", prop.ForAll(
		func(n int) bool {
			return Select(n) == Select(n)
		},
		gen.IntRange(0, 50000),
	))

	properties.Property("map only for small trees", prop.ForAll(
		func(n int) bool {
			return (Select(n) == StrategyMap) == (n <= MapMaxNodes)
		},
		gen.IntRange(0, 50000),
	))

	properties.TestingRun(t)
}
