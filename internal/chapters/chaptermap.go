package chapters

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Map is the per-title chapter index. It may be partial: the site reveals
// chapters incrementally, so lookups distinguish "absent" from "unknown".
type Map struct {
	byID      map[string]Ref
	order     []string // DOM discovery order
	byOrdinal map[int]string
	byVolume  map[int][]string
}

func NewMap() *Map {
	return &Map{
		byID:      map[string]Ref{},
		byOrdinal: map[int]string{},
		byVolume:  map[int][]string{},
	}
}

func (m *Map) Add(r Ref) {
	if r.ViewerID == "" {
		return
	}

	if _, ok := m.byID[r.ViewerID]; !ok {
		m.order = append(m.order, r.ViewerID)
	}
	m.byID[r.ViewerID] = r

	if r.Ordinal > 0 {
		if _, ok := m.byOrdinal[r.Ordinal]; !ok {
			m.byOrdinal[r.Ordinal] = r.ViewerID
		}
	}
	if r.Volume > 0 {
		m.byVolume[r.Volume] = appendUnique(m.byVolume[r.Volume], r.ViewerID)
	}
}

func appendUnique(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}

func (m *Map) Len() int { return len(m.order) }

func (m *Map) Get(viewerID string) (Ref, bool) {
	r, ok := m.byID[viewerID]
	return r, ok
}

func (m *Map) ByOrdinal(ordinal int) (Ref, bool) {
	id, ok := m.byOrdinal[ordinal]
	if !ok {
		return Ref{}, false
	}
	return m.byID[id], true
}

// ByVolumeOrdinal resolves the (volume, ordinal) unique key used by novels.
func (m *Map) ByVolumeOrdinal(volume, ordinal int) (Ref, bool) {
	for _, id := range m.byVolume[volume] {
		r := m.byID[id]
		if r.Ordinal == ordinal {
			return r, true
		}
	}
	return Ref{}, false
}

// All returns refs in DOM discovery order.
func (m *Map) All() []Ref {
	out := make([]Ref, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// OrdinalRange reports the visible [min, max] ordinal span. ok is false when
// no labeled ordinal is visible yet.
func (m *Map) OrdinalRange() (min, max int, ok bool) {
	for _, id := range m.order {
		r := m.byID[id]
		if r.Ordinal <= 0 {
			continue
		}
		if !ok {
			min, max, ok = r.Ordinal, r.Ordinal, true
			continue
		}
		if r.Ordinal < min {
			min = r.Ordinal
		}
		if r.Ordinal > max {
			max = r.Ordinal
		}
	}
	return
}

// HasOrdinals reports whether every requested ordinal is resolvable from the
// current snapshot.
func (m *Map) HasOrdinals(ordinals []int) bool {
	for _, o := range ordinals {
		if _, ok := m.byOrdinal[o]; !ok {
			return false
		}
	}
	return true
}

// Chronological returns refs with index 1 being the chronologically earliest
// chapter. The content page lists newest first, so reverse DOM order is the
// default; when the parsed ordinals already increase along DOM order, DOM
// order is kept unchanged.
func (m *Map) Chronological() []Ref {
	all := m.All()

	increasing := true
	prev := 0
	labeled := 0
	for _, r := range all {
		if r.Ordinal <= 0 {
			continue
		}
		labeled++
		if prev != 0 && r.Ordinal <= prev {
			increasing = false
			break
		}
		prev = r.Ordinal
	}

	if labeled >= 2 && increasing {
		return all
	}

	rev := make([]Ref, len(all))
	for i, r := range all {
		rev[len(all)-1-i] = r
	}
	return rev
}

// ByIndex resolves a 1-based chronological index; negative values index from
// the end. Zero is invalid.
func (m *Map) ByIndex(index int) (Ref, error) {
	if index == 0 {
		return Ref{}, fmt.Errorf("index 0 is invalid (indices are 1-based)")
	}

	chrono := m.Chronological()
	n := len(chrono)
	if n == 0 {
		return Ref{}, fmt.Errorf("chapter list is empty")
	}

	i := index
	if i < 0 {
		i = n + 1 + i
	}
	if i < 1 || i > n {
		return Ref{}, fmt.Errorf("index %d out of range (1..%d)", index, n)
	}

	return chrono[i-1], nil
}

// ParseContentHTML folds anchors of the content page into the map. Anchors
// are matched on the viewer path for the title; the label is the nearest
// enclosing text block under 400 characters.
func (m *Map) ParseContentHTML(html, titleID string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return err
	}

	marker := "/content/" + titleID + "/viewer/"

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		i := strings.Index(href, marker)
		if i < 0 {
			return
		}

		viewerID := strings.TrimRight(href[i+len(marker):], "/")
		if j := strings.IndexAny(viewerID, "?#"); j >= 0 {
			viewerID = viewerID[:j]
		}
		if viewerID == "" {
			return
		}

		label := nearbyLabel(a)
		ordinal, volume := ParseLabel(label)

		m.Add(Ref{
			ViewerID: viewerID,
			Ordinal:  ordinal,
			Volume:   volume,
			Label:    label,
		})
	})

	return nil
}

// nearbyLabel walks up from the anchor until it finds a text block of
// useful, bounded size.
func nearbyLabel(sel *goquery.Selection) string {
	const maxLen = 400

	node := sel
	for depth := 0; depth < 4 && node.Length() > 0; depth++ {
		text := strings.TrimSpace(node.Text())
		if text != "" && len(text) < maxLen {
			return compactSpaces(text)
		}
		node = node.Parent()
	}

	return ""
}

func compactSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
