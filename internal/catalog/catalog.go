// Package catalog implements C3: discovering DEM tiles in a folder,
// persisting/loading the catalog document, and answering "which tiles cover
// window W?" with deterministic ordering. Grounded on the teacher's
// repository.go, generalized from a hardcoded set of German state folders
// to any configured catalog folder.
package catalog

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"dem-terrain-render/internal/demio"
	"dem-terrain-render/internal/meridian"
	"dem-terrain-render/internal/rendererr"
)

const catalogFileName = "dem-catalog.json"
const catalogVersion = 1

// TileRecord is one entry of the catalog (spec.md §3).
type TileRecord struct {
	Path            string  `json:"path"`
	West            float64 `json:"west"`
	North           float64 `json:"north"`
	East            float64 `json:"east"`
	South           float64 `json:"south"`
	WidthPx         int     `json:"width_px"`
	HeightPx        int     `json:"height_px"`
	PixelsPerDegree float64 `json:"pixels_per_degree"`
}

// Envelope is the union bounding box of all tile bounds.
type Envelope struct {
	West, North, East, South float64
}

// Catalog is the discovered/persisted set of tiles for one folder.
type Catalog struct {
	Tiles    []TileRecord
	Coverage Envelope
}

// document is the persisted JSON shape (spec.md §6).
type document struct {
	Version   int          `json:"version"`
	CreatedBy string       `json:"created_by"`
	Tiles     []TileRecord `json:"tiles"`
	Coverage  struct {
		West, North, East, South float64
	} `json:"coverage"`
}

// Scan walks folderPath, probes each candidate file with demio's cheap
// metadata read, and collects tile records. Unreadable files are skipped; if
// every probe fails the catalog is empty (not an error).
func Scan(folderPath string) (*Catalog, error) {
	var tiles []TileRecord
	err := filepath.Walk(folderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		r, openErr := demio.Open(path)
		if openErr != nil {
			slog.Warn("catalog: skipping unreadable tile", "path", path, "error", openErr)
			return nil
		}
		w, n, e, s := r.Bounds()
		tiles = append(tiles, TileRecord{
			Path: path, West: w, North: n, East: e, South: s,
			WidthPx: r.WidthPx(), HeightPx: r.HeightPx(), PixelsPerDegree: r.PixelsPerDegree(),
		})
		return nil
	})
	if err != nil {
		return nil, rendererr.Wrap(rendererr.IoError, folderPath, err)
	}
	c := &Catalog{Tiles: tiles, Coverage: coverageOf(tiles)}
	sortTiles(c.Tiles)
	return c, nil
}

// Save persists the catalog document into folderPath.
func Save(folderPath string, c *Catalog) error {
	doc := document{Version: catalogVersion, CreatedBy: "dem-terrain-render", Tiles: c.Tiles}
	doc.Coverage.West, doc.Coverage.North = c.Coverage.West, c.Coverage.North
	doc.Coverage.East, doc.Coverage.South = c.Coverage.East, c.Coverage.South

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return rendererr.Wrap(rendererr.WriteError, folderPath, err)
	}
	if err := os.WriteFile(filepath.Join(folderPath, catalogFileName), data, 0o644); err != nil {
		return rendererr.Wrap(rendererr.WriteError, folderPath, err)
	}
	return nil
}

// Load reads a previously persisted catalog file if present; returns
// (nil, nil) if no catalog file exists.
func Load(folderPath string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Join(folderPath, catalogFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, rendererr.Wrap(rendererr.IoError, folderPath, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, rendererr.Wrap(rendererr.UnreadableHeader, folderPath, err)
	}
	c := &Catalog{
		Tiles: doc.Tiles,
		Coverage: Envelope{
			West: doc.Coverage.West, North: doc.Coverage.North,
			East: doc.Coverage.East, South: doc.Coverage.South,
		},
	}
	sortTiles(c.Tiles)
	return c, nil
}

// TilesForWindow filters tiles whose bounds intersect window, splitting
// antimeridian-crossing windows via meridian.SplitMeridianCrossing and
// merging the results in deterministic order.
func (c *Catalog) TilesForWindow(west, north, east, south float64) []TileRecord {
	var out []TileRecord
	seen := map[string]bool{}
	for _, part := range meridian.SplitMeridianCrossing(west, north, east, south) {
		w, n, e, s := part[0], part[1], part[2], part[3]
		for _, t := range c.Tiles {
			if t.North <= s || t.South >= n || t.East <= w || t.West >= e {
				continue
			}
			if !seen[t.Path] {
				seen[t.Path] = true
				out = append(out, t)
			}
		}
	}
	return out
}

func coverageOf(tiles []TileRecord) Envelope {
	if len(tiles) == 0 {
		return Envelope{}
	}
	env := Envelope{West: tiles[0].West, North: tiles[0].North, East: tiles[0].East, South: tiles[0].South}
	for _, t := range tiles[1:] {
		if t.West < env.West {
			env.West = t.West
		}
		if t.East > env.East {
			env.East = t.East
		}
		if t.North > env.North {
			env.North = t.North
		}
		if t.South < env.South {
			env.South = t.South
		}
	}
	return env
}

// sortTiles orders ascending north->south then west->east, the deterministic
// assembly order spec.md §4.3 requires.
func sortTiles(tiles []TileRecord) {
	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i].North != tiles[j].North {
			return tiles[i].North > tiles[j].North
		}
		if tiles[i].West != tiles[j].West {
			return tiles[i].West < tiles[j].West
		}
		return tiles[i].Path < tiles[j].Path
	})
}

// WinningTile breaks a same-pass overlap tie: the tile with the larger
// pixels_per_degree wins; ties break by lexicographic path (spec.md §4.3).
func WinningTile(a, b TileRecord) TileRecord {
	if a.PixelsPerDegree != b.PixelsPerDegree {
		if a.PixelsPerDegree > b.PixelsPerDegree {
			return a
		}
		return b
	}
	if a.Path < b.Path {
		return a
	}
	return b
}
