// Package pkgname models the different names a vendored package carries.
//
// A package is referenced three ways in the raw payload: by the directory
// it was extracted to (often suffixed with a content hash and version,
// e.g. "Emittery-edcba0e9-2.4.1"), by the name declared in its lock file
// (possibly scoped, e.g. "roblox/Emittery"), and by the normalized
// publication-safe name used in the target registry ("roblox-emittery").
// All three are captured here; a Name is immutable once built.
package pkgname

import (
	"strings"
	"unicode"
)

// Name holds every identifier form of one discovered package.
type Name struct {
	// PathName is the directory name the package was extracted under,
	// e.g. "Emittery-edcba0e9-2.4.1".
	PathName string `json:"path_name"`

	// RegistryName is the normalized, publication-safe name,
	// e.g. "roblox-emittery". Registries require kebab-case and support
	// a single scope, so declared scopes become a prefix.
	RegistryName string `json:"registry_name"`

	// Scope is the declared scope when the lock name is scoped
	// ("roblox/emittery" -> "roblox"), empty otherwise.
	Scope string `json:"scope,omitempty"`

	// ScopedName is the name within the scope ("emittery"), empty when
	// the lock name is unscoped.
	ScopedName string `json:"scoped_name,omitempty"`
}

// New builds a Name from the extraction directory name and the name
// declared in the package's lock file.
func New(pathName, lockName string) Name {
	kebab := Kebab(lockName)

	n := Name{
		PathName:     pathName,
		RegistryName: strings.ReplaceAll(kebab, "/", "-"),
	}

	if scope, scoped, ok := strings.Cut(kebab, "/"); ok {
		n.Scope = scope
		n.ScopedName = scoped
	}

	return n
}

// Kebab converts a name to kebab-case, preserving "/" scope separators.
// "LuauPolyfill" becomes "luau-polyfill"; "roblox/ChalkLua" becomes
// "roblox/chalk-lua". Existing separators ("_", "-", spaces) collapse to
// single dashes.
func Kebab(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	prevLower := false
	prevDash := true // suppress a leading dash
	for i, r := range s {
		switch {
		case r == '/':
			b.WriteByte('/')
			prevLower = false
			prevDash = true
		case r == '_' || r == '-' || unicode.IsSpace(r):
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
			prevLower = false
		case unicode.IsUpper(r):
			// Split on lower->upper boundaries and before the last upper
			// of an acronym run ("HTTPServer" -> "http-server").
			nextLower := false
			if next := nextRune(s, i); next != 0 {
				nextLower = unicode.IsLower(next)
			}
			if !prevDash && (prevLower || nextLower) {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
			prevDash = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r)
			prevDash = false
		}
	}

	return strings.Trim(b.String(), "-")
}

// nextRune returns the rune following byte offset i, or 0 at the end.
func nextRune(s string, i int) rune {
	rest := s[i:]
	seen := false
	for _, r := range rest {
		if seen {
			return r
		}
		seen = true
	}
	return 0
}
