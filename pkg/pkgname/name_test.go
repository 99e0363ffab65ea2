package pkgname

import "testing"

func TestNewScoped(t *testing.T) {
	n := New("Emittery-edcba0e9-2.4.1", "roblox/Emittery")

	if n.PathName != "Emittery-edcba0e9-2.4.1" {
		t.Errorf("PathName = %s", n.PathName)
	}
	if n.RegistryName != "roblox-emittery" {
		t.Errorf("RegistryName = %s, want roblox-emittery", n.RegistryName)
	}
	if n.Scope != "roblox" {
		t.Errorf("Scope = %s, want roblox", n.Scope)
	}
	if n.ScopedName != "emittery" {
		t.Errorf("ScopedName = %s, want emittery", n.ScopedName)
	}
}

func TestNewUnscoped(t *testing.T) {
	n := New("ChalkLua-198f600a-0.1.3", "ChalkLua")

	if n.RegistryName != "chalk-lua" {
		t.Errorf("RegistryName = %s, want chalk-lua", n.RegistryName)
	}
	if n.Scope != "" || n.ScopedName != "" {
		t.Errorf("unscoped name should have empty scope, got %q/%q", n.Scope, n.ScopedName)
	}
}

func TestKebab(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LuauPolyfill", "luau-polyfill"},
		{"roblox/ChalkLua", "roblox/chalk-lua"},
		{"already-kebab", "already-kebab"},
		{"snake_case_name", "snake-case-name"},
		{"HTTPServer", "http-server"},
		{"Promise", "promise"},
		{"", ""},
		{"A", "a"},
	}

	for _, tt := range tests {
		if got := Kebab(tt.in); got != tt.want {
			t.Errorf("Kebab(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
