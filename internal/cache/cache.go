package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ostrab/kpdl/internal/chapters"
	"github.com/ostrab/kpdl/internal/util"
)

// Dir is the per-output cache folder.
func Dir(outDir string) string {
	return filepath.Join(outDir, "cache")
}

func urlListPath(outDir, label string) string {
	return filepath.Join(Dir(outDir), label+"_urls.json")
}

func episodeMapPath(outDir string) string {
	return filepath.Join(Dir(outDir), "episode_map.json")
}

// SaveURLList persists a harvested URL list in first-seen order.
func SaveURLList(outDir, label string, urls []string) error {
	if err := os.MkdirAll(Dir(outDir), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(urls, "", "  ")
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(urlListPath(outDir, label), data, 0644)
}

// LoadURLList returns the cached list, or nil when absent or unreadable.
func LoadURLList(outDir, label string) []string {
	b, err := os.ReadFile(urlListPath(outDir, label))
	if err != nil {
		return nil
	}

	var urls []string
	if err := json.Unmarshal(b, &urls); err != nil {
		return nil
	}
	return urls
}

// DeleteURLList drops one chapter's cached list.
func DeleteURLList(outDir, label string) {
	_ = os.Remove(urlListPath(outDir, label))
}

type episodeEntry struct {
	ViewerID string `json:"viewerId"`
	Ordinal  int    `json:"ordinal,omitempty"`
	Volume   int    `json:"volume,omitempty"`
	Label    string `json:"label,omitempty"`
}

// SaveEpisodeMap caches the revealed chapter map in DOM order.
func SaveEpisodeMap(outDir string, m *chapters.Map) error {
	if err := os.MkdirAll(Dir(outDir), 0755); err != nil {
		return err
	}

	refs := m.All()
	entries := make([]episodeEntry, 0, len(refs))
	for _, r := range refs {
		entries = append(entries, episodeEntry{
			ViewerID: r.ViewerID,
			Ordinal:  r.Ordinal,
			Volume:   r.Volume,
			Label:    r.Label,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(episodeMapPath(outDir), data, 0644)
}

// LoadEpisodeMap rebuilds a cached map; nil when absent or unreadable.
func LoadEpisodeMap(outDir string) *chapters.Map {
	b, err := os.ReadFile(episodeMapPath(outDir))
	if err != nil {
		return nil
	}

	var entries []episodeEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil
	}

	m := chapters.NewMap()
	for _, e := range entries {
		m.Add(chapters.Ref{
			ViewerID: e.ViewerID,
			Ordinal:  e.Ordinal,
			Volume:   e.Volume,
			Label:    e.Label,
		})
	}
	if m.Len() == 0 {
		return nil
	}
	return m
}
