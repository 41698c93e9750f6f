package chapters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Ref identifies one chapter of a title. ViewerID is the site-unique key;
// Ordinal and Volume are parsed from the display label when present (zero
// means absent).
type Ref struct {
	ViewerID string
	Ordinal  int
	Volume   int
	Label    string
}

var (
	reOrdinal = regexp.MustCompile(`(\d+)\s*화`)
	reVolume  = regexp.MustCompile(`(\d+)\s*권`)
)

// ParseLabel extracts "<n>화" and "<n>권" from a chapter label.
func ParseLabel(label string) (ordinal, volume int) {
	if m := reOrdinal.FindStringSubmatch(label); m != nil {
		ordinal, _ = strconv.Atoi(m[1])
	}
	if m := reVolume.FindStringSubmatch(label); m != nil {
		volume, _ = strconv.Atoi(m[1])
	}
	return
}

// FolderName derives the output folder for a chapter: ordinal alone,
// volume+ordinal for novels, viewer id when neither is known.
func (r Ref) FolderName() string {
	switch {
	case r.Volume > 0 && r.Ordinal > 0:
		return fmt.Sprintf("%03d_%04d", r.Volume, r.Ordinal)
	case r.Ordinal > 0:
		return strconv.Itoa(r.Ordinal)
	default:
		return sanitize(r.ViewerID)
	}
}

// DisplayLabel is what log lines call the chapter.
func (r Ref) DisplayLabel() string {
	if r.Label != "" {
		return strings.TrimSpace(r.Label)
	}
	if r.Ordinal > 0 {
		return fmt.Sprintf("%d화", r.Ordinal)
	}
	return r.ViewerID
}

func sanitize(s string) string {
	clean := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-':
			clean = append(clean, r)
		default:
			clean = append(clean, '_')
		}
	}
	return strings.Trim(string(clean), "_")
}
