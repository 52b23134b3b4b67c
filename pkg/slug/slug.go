package slug

import (
	"strconv"

	gslug "github.com/gosimple/slug"
)

// Generate returns a URL-safe slug for name: transliterated to ASCII,
// lowercased, with runs of other characters collapsed to single hyphens.
//
//	"Dev Tools"   -> "dev-tools"
//	"Flow & Prod" -> "flow-and-prod"
func Generate(name string) string {
	return gslug.Make(name)
}

// Unique returns Generate(name), suffixed with -2, -3, ... until taken reports false.
// An empty slug falls back to "item".
func Unique(name string, taken func(string) bool) string {
	base := Generate(name)
	if base == "" {
		base = "item"
	}
	if !taken(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// Valid reports whether s is already in slug form.
func Valid(s string) bool {
	return gslug.IsSlug(s)
}
