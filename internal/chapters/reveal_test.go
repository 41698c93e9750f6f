package chapters

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// scriptedRevealer serves pre-baked snapshots; every Reveal click advances to
// the next one.
type scriptedRevealer struct {
	snapshots []string
	pos       int
	clicks    []Direction
}

func (s *scriptedRevealer) Snapshot(context.Context) (string, error) {
	return s.snapshots[s.pos], nil
}

func (s *scriptedRevealer) Reveal(_ context.Context, dir Direction) (bool, error) {
	s.clicks = append(s.clicks, dir)
	if s.pos < len(s.snapshots)-1 {
		s.pos++
		return true, nil
	}
	return false, nil
}

func page(titleID string, ordinals ...int) string {
	html := "<html><body>"
	for _, o := range ordinals {
		html += fmt.Sprintf(`<a href="/content/%s/viewer/%d"><span>%d화</span></a>`, titleID, 1000+o, o)
	}
	return html + "</body></html>"
}

func TestBuildIncrementally_NoClickWhenSatisfied(t *testing.T) {
	rev := &scriptedRevealer{snapshots: []string{page("1", 5, 4, 3)}}
	m := NewMap()

	err := BuildIncrementally(context.Background(), rev, m, "1", []int{4}, RevealOptions{StopOnMatch: true})
	assert.NoError(t, err)
	assert.Empty(t, rev.clicks)
	assert.True(t, m.HasOrdinals([]int{4}))
}

func TestBuildIncrementally_RevealsUntilFound(t *testing.T) {
	rev := &scriptedRevealer{snapshots: []string{
		page("1", 10, 9, 8),
		page("1", 10, 9, 8, 7, 6),
		page("1", 10, 9, 8, 7, 6, 5, 4),
	}}
	m := NewMap()

	err := BuildIncrementally(context.Background(), rev, m, "1", []int{4}, RevealOptions{StopOnMatch: true})
	assert.NoError(t, err)
	assert.True(t, m.HasOrdinals([]int{4}))

	// target 4 sits below the visible 8..10 span, so the down control is used
	for _, c := range rev.clicks {
		assert.Equal(t, DirDown, c)
	}
}

func TestBuildIncrementally_StopsWhenListStopsGrowing(t *testing.T) {
	rev := &scriptedRevealer{snapshots: []string{
		page("1", 3, 2, 1),
		page("1", 3, 2, 1),
	}}
	m := NewMap()

	err := BuildIncrementally(context.Background(), rev, m, "1", []int{99}, RevealOptions{StopOnMatch: true})
	assert.NoError(t, err)
	assert.Equal(t, 3, m.Len())
	assert.False(t, m.HasOrdinals([]int{99}))
}

func TestBuildIncrementally_FullListWithoutTargets(t *testing.T) {
	rev := &scriptedRevealer{snapshots: []string{
		page("1", 4, 3),
		page("1", 4, 3, 2, 1),
	}}
	m := NewMap()

	err := BuildIncrementally(context.Background(), rev, m, "1", nil, RevealOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 4, m.Len())
}
