package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggedIn(t *testing.T) {
	cold := &State{Cookies: []Cookie{{Name: "theme", Value: "dark"}}}
	assert.False(t, cold.LoggedIn())

	for _, marker := range []string{"_kpwtkn", "_kawlt", "_karmt", "_kau"} {
		st := &State{Cookies: []Cookie{{Name: marker, Value: "x"}}}
		assert.True(t, st.LoggedIn(), "marker %s", marker)
	}
}

func TestWarm(t *testing.T) {
	cold := &State{Cookies: []Cookie{{Name: "_kawlt", Value: "x", Domain: ".kakao.com"}}}
	assert.False(t, cold.Warm())

	warm := &State{Cookies: []Cookie{{Name: "__T_", Value: "x"}}}
	assert.True(t, warm.Warm())

	hostScoped := &State{Cookies: []Cookie{{Name: "anything", Domain: "page.kakao.com"}}}
	assert.True(t, hostScoped.Warm())
}

func TestCookieHeader(t *testing.T) {
	st := &State{Cookies: []Cookie{
		{Name: "a", Value: "1"},
		{Name: "b", Value: "2"},
	}}
	assert.Equal(t, "a=1; b=2", st.CookieHeader())

	empty := &State{}
	assert.Equal(t, "", empty.CookieHeader())
}

func TestStateRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")

	st := &State{Cookies: []Cookie{
		{Name: "_kawlt", Value: "tok", Domain: ".kakao.com", Path: "/", Secure: true},
		{Name: "__T_", Value: "warm", Domain: "page.kakao.com"},
	}}

	assert.NoError(t, SaveState(path, st))

	got, err := LoadState(path)
	assert.NoError(t, err)
	assert.Equal(t, st.Cookies, got.Cookies)
	assert.True(t, got.LoggedIn())
	assert.True(t, got.Warm())
}

func TestLoadState_Missing(t *testing.T) {
	_, err := LoadState(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
