package palette

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadEmbeddedDefault(t *testing.T) {
	got, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 15 || got[0] != "#FF6B6B" {
		t.Fatalf("default palette = %v", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colours.txt")
	doc := "// mine\n#abc\n#ABC\nnot-a-colour\n\n#123456\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"#ABC", "#123456"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	if err != nil || len(got) == 0 {
		t.Fatalf("fallback = %v, %v", got, err)
	}
}

func TestIsHex(t *testing.T) {
	tests := map[string]bool{
		"#FFF": true, "#a1b2c3": true, "FFF": false, "#GGG": false, "#12345": false, "": false,
	}
	for in, want := range tests {
		if IsHex(in) != want {
			t.Errorf("IsHex(%q) = %v", in, !want)
		}
	}
}
