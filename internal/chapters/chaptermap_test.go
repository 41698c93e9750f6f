package chapters

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLabel(t *testing.T) {
	o, v := ParseLabel("3권 12화 무료")
	assert.Equal(t, 12, o)
	assert.Equal(t, 3, v)

	o, v = ParseLabel("프롤로그")
	assert.Equal(t, 0, o)
	assert.Equal(t, 0, v)
}

func TestFolderName(t *testing.T) {
	assert.Equal(t, "12", Ref{ViewerID: "a", Ordinal: 12}.FolderName())
	assert.Equal(t, "003_0012", Ref{ViewerID: "a", Ordinal: 12, Volume: 3}.FolderName())
	assert.Equal(t, "55123", Ref{ViewerID: "55123"}.FolderName())
	assert.Equal(t, "55123_x", Ref{ViewerID: "55123?x"}.FolderName())
}

func contentPage(titleID string, labels ...string) string {
	html := "<html><body><ul>"
	for i, label := range labels {
		html += fmt.Sprintf(`<li><a href="/content/%s/viewer/%d"><span>%s</span></a></li>`,
			titleID, 9000+i, label)
	}
	return html + "</ul></body></html>"
}

func TestParseContentHTML(t *testing.T) {
	m := NewMap()
	err := m.ParseContentHTML(contentPage("777", "3화", "2화", "1화"), "777")
	assert.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	r, ok := m.ByOrdinal(2)
	assert.True(t, ok)
	assert.Equal(t, "9001", r.ViewerID)
	assert.Equal(t, "2화", r.Label)

	// anchors of other titles never leak in
	m2 := NewMap()
	_ = m2.ParseContentHTML(contentPage("777", "1화"), "888")
	assert.Equal(t, 0, m2.Len())
}

func TestChronological_NewestFirstIsReversed(t *testing.T) {
	m := NewMap()
	_ = m.ParseContentHTML(contentPage("1", "3화", "2화", "1화"), "1")

	chrono := m.Chronological()
	assert.Equal(t, 1, chrono[0].Ordinal)
	assert.Equal(t, 3, chrono[2].Ordinal)
}

func TestChronological_AlreadyAscendingIsKept(t *testing.T) {
	m := NewMap()
	_ = m.ParseContentHTML(contentPage("1", "1화", "2화", "3화"), "1")

	chrono := m.Chronological()
	assert.Equal(t, 1, chrono[0].Ordinal)
	assert.Equal(t, 3, chrono[2].Ordinal)
}

func TestByIndex(t *testing.T) {
	m := NewMap()
	_ = m.ParseContentHTML(contentPage("1", "3화", "2화", "1화"), "1")

	first, err := m.ByIndex(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, first.Ordinal)

	last, err := m.ByIndex(-1)
	assert.NoError(t, err)
	assert.Equal(t, 3, last.Ordinal)

	_, err = m.ByIndex(0)
	assert.Error(t, err)
	_, err = m.ByIndex(4)
	assert.Error(t, err)
	_, err = m.ByIndex(-4)
	assert.Error(t, err)
}

func TestPickDirection(t *testing.T) {
	// visible span 10..20
	assert.Equal(t, DirDown, PickDirection([]int{5}, 10, 20))
	assert.Equal(t, DirUp, PickDirection([]int{25}, 10, 20))
	assert.Equal(t, DirDown, PickDirection([]int{12}, 10, 20))
	assert.Equal(t, DirUp, PickDirection([]int{19}, 10, 20))
	assert.Equal(t, DirNone, PickDirection(nil, 10, 20))
}

func TestResolveOrdinals(t *testing.T) {
	m := NewMap()
	_ = m.ParseContentHTML(contentPage("1", "1화", "2화"), "1")

	found, missing := ResolveOrdinals(m, []int{2, 7, 1})
	assert.Len(t, found, 2)
	assert.Equal(t, 2, found[0].Ordinal)
	assert.Equal(t, 1, found[1].Ordinal)
	assert.Equal(t, []int{7}, missing)
}

func TestResolveVolumeOrdinals(t *testing.T) {
	m := NewMap()
	m.Add(Ref{ViewerID: "a", Volume: 1, Ordinal: 1})
	m.Add(Ref{ViewerID: "b", Volume: 1, Ordinal: 2})
	m.Add(Ref{ViewerID: "c", Volume: 2, Ordinal: 1})

	found, missing := ResolveVolumeOrdinals(m, []int{1, 2}, []int{1, 2})
	assert.Len(t, found, 3)
	assert.Equal(t, []string{"2권 2화"}, missing)
}
