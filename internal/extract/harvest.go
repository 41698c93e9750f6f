package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reBackgroundURL = regexp.MustCompile(`url\((?:["']?)([^"')]+)(?:["']?)\)`)
)

// collector accumulates page-image URLs in first-seen order. It backs the
// snapshot-HTML harvest that supplements the in-page script when the live
// evaluation comes back empty.
type collector struct {
	urls []string
	seen map[string]bool
}

func newCollector() *collector {
	return &collector{seen: map[string]bool{}}
}

func (c *collector) add(raw, base string) {
	u := strings.TrimSpace(raw)
	if u == "" || strings.HasPrefix(u, "javascript:") || strings.HasPrefix(u, "data:") {
		return
	}

	u = resolve(base, u)
	lu := strings.ToLower(u)
	if strings.Contains(lu, "logo") ||
		strings.Contains(lu, "profile") ||
		strings.Contains(lu, "avatar") ||
		strings.Contains(lu, "banner") {
		return
	}

	if c.seen[u] {
		return
	}
	c.seen[u] = true
	c.urls = append(c.urls, u)
}

func resolve(baseURL, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u == nil {
		return raw
	}
	if u.IsAbs() {
		return u.String()
	}

	base, err := url.Parse(baseURL)
	if err != nil || base == nil {
		return raw
	}
	return base.ResolveReference(u).String()
}

// widestSrcsetEntry picks the candidate with the largest width descriptor,
// falling back to the last entry when no descriptors are present.
func widestSrcsetEntry(srcset string) string {
	best := ""
	bestW := -1
	for part := range strings.SplitSeq(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		w := 0
		if len(fields) > 1 && strings.HasSuffix(fields[1], "w") {
			w, _ = strconv.Atoi(strings.TrimSuffix(fields[1], "w"))
		}
		if w >= bestW {
			bestW = w
			best = fields[0]
		}
	}
	return best
}

// HarvestHTML extracts page-image URLs from a rendered-DOM snapshot: img
// src/srcset (widest entry), picture sources, lazy-load attributes and
// inline background-image styles, in document order.
func HarvestHTML(html, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	c := newCollector()

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if ss, ok := img.Attr("srcset"); ok && strings.TrimSpace(ss) != "" {
			c.add(widestSrcsetEntry(ss), pageURL)
		}
		for _, k := range []string{"src", "data-src", "data-lazy-src", "data-original"} {
			if v, ok := img.Attr(k); ok {
				c.add(v, pageURL)
			}
		}
	})

	doc.Find("source").Each(func(_ int, src *goquery.Selection) {
		if ss, ok := src.Attr("srcset"); ok && strings.TrimSpace(ss) != "" {
			c.add(widestSrcsetEntry(ss), pageURL)
		}
		if v, ok := src.Attr("src"); ok {
			c.add(v, pageURL)
		}
	})

	doc.Find("[style]").Each(func(_ int, el *goquery.Selection) {
		style, _ := el.Attr("style")
		if !strings.Contains(strings.ToLower(style), "background-image") {
			return
		}
		for _, m := range reBackgroundURL.FindAllStringSubmatch(style, -1) {
			c.add(m[1], pageURL)
		}
	})

	return c.urls
}

// MergeURLs appends extras not already present in primary, preserving both
// orders.
func MergeURLs(primary, extras []string) []string {
	seen := make(map[string]bool, len(primary))
	out := make([]string, 0, len(primary)+len(extras))
	for _, u := range primary {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	for _, u := range extras {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}
