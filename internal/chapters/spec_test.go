package chapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSpec_SingleAndList(t *testing.T) {
	got, err := ParseSpec("3,5, 12")
	assert.NoError(t, err)
	assert.Equal(t, []int{3, 5, 12}, got)
}

func TestParseSpec_AscendingRange(t *testing.T) {
	got, err := ParseSpec("5-8")
	assert.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7, 8}, got)
}

func TestParseSpec_DescendingRange(t *testing.T) {
	got, err := ParseSpec("8-5")
	assert.NoError(t, err)
	assert.Equal(t, []int{8, 7, 6, 5}, got)
}

func TestParseSpec_DedupPreservesOrder(t *testing.T) {
	got, err := ParseSpec("4 1-3 2,4")
	assert.NoError(t, err)
	assert.Equal(t, []int{4, 1, 2, 3}, got)
}

func TestParseSpec_NegativeIsIndexNotRange(t *testing.T) {
	got, err := ParseSpec("-1,-2")
	assert.NoError(t, err)
	assert.Equal(t, []int{-1, -2}, got)
}

func TestParseSpec_Errors(t *testing.T) {
	for _, bad := range []string{"", "  ", "abc", "1-x", "x-3"} {
		_, err := ParseSpec(bad)
		assert.Error(t, err, "spec %q", bad)
	}
}

func TestParseViewerIDs(t *testing.T) {
	got := ParseViewerIDs("55123, 55124 55123\n55125")
	assert.Equal(t, []string{"55123", "55124", "55125"}, got)
}
