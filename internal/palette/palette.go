// internal/palette/palette.go
//
// Colour palette management for colour cells.
//
// Initialization behavior (Load):
//   1. If path is set, read one colour per line from that file.
//   2. Otherwise (or if the file yields nothing usable) use the embedded
//      assets/palette.txt.
//
// Constraints:
//   • Colours are CSS hex values: #RGB or #RRGGBB.
//   • Values are normalized to upper case; duplicates are dropped.
//   • Lines starting with "//" are comments.

package palette

import (
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memorygame/assets"
)

var ErrEmpty = errors.New("palette: no usable colours")

// Load returns the palette from path, falling back to the embedded default
// when path is empty, unreadable or holds no valid colours.
func Load(path string) ([]string, error) {
	if path != "" {
		colours, err := readFile(path)
		if err == nil && len(colours) > 0 {
			return colours, nil
		}
		log.Warn().Err(err).Str("path", path).Msg("palette file unusable; using embedded default")
	}
	lines, err := assets.PaletteList()
	if err != nil {
		return nil, err
	}
	colours := Normalize(lines)
	if len(colours) == 0 {
		return nil, ErrEmpty
	}
	return colours, nil
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := assets.ReadLines(f)
	if err != nil {
		return nil, err
	}
	return Normalize(lines), nil
}

// Normalize keeps valid hex colours, upper-cased, first occurrence only.
func Normalize(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	var out []string
	for _, l := range lines {
		c := strings.ToUpper(strings.TrimSpace(l))
		if !IsHex(c) {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// IsHex reports whether s is #RGB or #RRGGBB.
func IsHex(s string) bool {
	if len(s) != 4 && len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}
