package util

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var reNumbered = regexp.MustCompile(`^(\d{3,})\.[A-Za-z0-9]+$`)

// NextIndex returns the next free page number inside dir: one past the
// highest NNN prefix among already-saved pages, 1 for a fresh folder.
func NextIndex(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 1
	}

	maxSeen := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := reNumbered.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > maxSeen {
			maxSeen = n
		}
	}

	return maxSeen + 1
}

// HasPages reports whether dir already holds at least one numbered page.
// Reruns treat such a folder as complete and skip it.
func HasPages(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}

	for _, e := range entries {
		if !e.IsDir() && reNumbered.MatchString(e.Name()) {
			return true
		}
	}

	return false
}

// ListPages returns the numbered page files of dir in page order.
func ListPages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	type page struct {
		n    int
		path string
	}
	var pages []page

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := reNumbered.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pages = append(pages, page{n: n, path: filepath.Join(dir, e.Name())})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.path)
	}
	return out
}

// PageName formats a zero-padded page filename, at least three digits wide.
func PageName(index int, ext string) string {
	n := strconv.Itoa(index)
	for len(n) < 3 {
		n = "0" + n
	}
	return n + ext
}

var reExtOK = regexp.MustCompile(`^\.(?i:jpe?g|png|webp|gif|avif|bmp)$`)

// ExtFromURL derives a file extension from the URL path, falling back to a
// "format" query parameter, then to .jpg.
func ExtFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ".jpg"
	}

	if ext := strings.ToLower(path.Ext(u.Path)); reExtOK.MatchString(ext) {
		return ext
	}

	if f := u.Query().Get("format"); f != "" {
		ext := "." + strings.ToLower(strings.TrimPrefix(f, "."))
		if reExtOK.MatchString(ext) {
			return ext
		}
	}

	return ".jpg"
}

// WriteFileAtomic writes via a temp file in the same directory and renames
// into place, so readers never observe a half-written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}

	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, perm); err != nil {
		_ = os.Remove(name)
		return err
	}

	return os.Rename(name, path)
}
