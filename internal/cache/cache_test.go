package cache

import (
	"testing"

	"github.com/ostrab/kpdl/internal/chapters"

	"github.com/stretchr/testify/assert"
)

func TestURLListRoundtrip(t *testing.T) {
	dir := t.TempDir()

	assert.Nil(t, LoadURLList(dir, "12"))

	urls := []string{"https://cdn.example.com/1.png", "https://cdn.example.com/2.png"}
	assert.NoError(t, SaveURLList(dir, "12", urls))
	assert.Equal(t, urls, LoadURLList(dir, "12"))

	// labels don't collide
	assert.Nil(t, LoadURLList(dir, "13"))

	DeleteURLList(dir, "12")
	assert.Nil(t, LoadURLList(dir, "12"))
}

func TestEpisodeMapRoundtrip(t *testing.T) {
	dir := t.TempDir()

	assert.Nil(t, LoadEpisodeMap(dir))

	m := chapters.NewMap()
	m.Add(chapters.Ref{ViewerID: "901", Ordinal: 3, Label: "3화"})
	m.Add(chapters.Ref{ViewerID: "900", Ordinal: 2, Volume: 1, Label: "1권 2화"})

	assert.NoError(t, SaveEpisodeMap(dir, m))

	got := LoadEpisodeMap(dir)
	assert.NotNil(t, got)
	assert.Equal(t, 2, got.Len())

	r, ok := got.ByOrdinal(3)
	assert.True(t, ok)
	assert.Equal(t, "901", r.ViewerID)

	r, ok = got.ByVolumeOrdinal(1, 2)
	assert.True(t, ok)
	assert.Equal(t, "900", r.ViewerID)

	// DOM order survives the roundtrip
	all := got.All()
	assert.Equal(t, "901", all[0].ViewerID)
	assert.Equal(t, "900", all[1].ViewerID)
}
