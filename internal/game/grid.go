// internal/game/grid.go
//
// Board generation.
// Each call is an independent random draw: kinds are picked uniformly from the
// difficulty's allowed set, payloads are derived from kind and id.
// Duplicate colours or images across cells are allowed.

package game

import (
	"fmt"
	"strconv"
)

// DefaultImageSource is formatted with the cell id.
const DefaultImageSource = "https://picsum.photos/seed/%d/100"

// Generator produces boards. The zero value is not usable; use NewGenerator.
type Generator struct {
	palette     []string
	imageSource string
}

// NewGenerator returns a Generator drawing colours from palette and building
// image references from imageSource (a fmt template taking the cell id).
// Empty arguments fall back to a single neutral colour / DefaultImageSource.
func NewGenerator(palette []string, imageSource string) *Generator {
	if len(palette) == 0 {
		palette = []string{"#808080"}
	}
	if imageSource == "" {
		imageSource = DefaultImageSource
	}
	return &Generator{palette: append([]string(nil), palette...), imageSource: imageSource}
}

// Generate builds a fresh size² board for d.
func (g *Generator) Generate(d Difficulty, rng Rand) (Board, error) {
	cfg, err := d.Config()
	if err != nil {
		return Board{}, err
	}
	n := cfg.Size * cfg.Size
	cells := make([]Cell, n)
	for id := 0; id < n; id++ {
		kind := cfg.Kinds[rng.Intn(len(cfg.Kinds))]
		cells[id] = Cell{ID: id, Kind: kind, Payload: g.payload(kind, id, rng)}
	}
	return Board{Difficulty: d, Size: cfg.Size, Cells: cells}, nil
}

func (g *Generator) payload(kind CellKind, id int, rng Rand) string {
	switch kind {
	case KindColor:
		return g.palette[rng.Intn(len(g.palette))]
	case KindImage:
		return fmt.Sprintf(g.imageSource, id)
	default:
		return strconv.Itoa(id + 1)
	}
}
