// Package assets embeds the static files the server needs at runtime:
// SQL migrations and the default cell colour palette.
package assets

import (
	"bufio"
	"embed"
	"io"
	"io/fs"
	"strings"
)

//go:embed palette.txt sql/*.sql
var FS embed.FS

// Migrations returns the embedded sql/ directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err) // embedded path, cannot fail
	}
	return sub
}

// ReadLines returns the trimmed, non-empty lines of r, skipping "//" comments.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "//") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// PaletteList returns the embedded default palette.
func PaletteList() ([]string, error) {
	f, err := FS.Open("palette.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLines(f)
}
