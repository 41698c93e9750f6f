package session

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/ostrab/kpdl/internal/util"
)

// Cookie mirrors the on-disk session file entry. Unknown fields of the file
// are preserved opaquely via Origins.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// State is the serialized browser storage: cookies plus origin storage.
type State struct {
	Cookies []Cookie          `json:"cookies"`
	Origins []json.RawMessage `json:"origins"`
}

// loginMarkers are the cookie names whose presence means "logged in".
var loginMarkers = map[string]bool{
	"_kpwtkn":       true,
	"_kawlt":        true,
	"_kawltea":      true,
	"_karmt":        true,
	"_karmtea":      true,
	"_kau":          true,
	"_kadu":         true,
	"_kpawbat_e":    true,
	"_kp_collector": true,
}

// LoggedIn reports whether the state carries at least one login marker.
func (s *State) LoggedIn() bool {
	for _, c := range s.Cookies {
		if loginMarkers[c.Name] {
			return true
		}
	}
	return false
}

// Warm reports whether host-scoped reader cookies are present in addition to
// the account markers. A logged-in but cold state still needs the warm-up
// navigation before it is worth persisting.
func (s *State) Warm() bool {
	for _, c := range s.Cookies {
		if c.Name == "__T_" || c.Name == "__T_SECURE" {
			return true
		}
		if strings.Contains(c.Domain, ReaderHost) {
			return true
		}
	}
	return false
}

// CookieHeader joins the cookies into one request header value.
func (s *State) CookieHeader() string {
	var b strings.Builder
	for i, c := range s.Cookies {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(c.Name)
		b.WriteString("=")
		b.WriteString(c.Value)
	}
	return b.String()
}

// LoadState parses a session file. A missing file is not an error shape the
// caller can't handle: it returns os.ErrNotExist unchanged.
func LoadState(path string) (*State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// SaveState persists the session file in one atomic write.
func SaveState(path string, s *State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return util.WriteFileAtomic(path, data, 0600)
}
