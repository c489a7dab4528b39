package models

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
		ok    bool
	}{
		{"viewer", RoleViewer, true},
		{" Editor ", RoleEditor, true},
		{"ADMIN", RoleAdmin, true},
		{"owner", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.input)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseRole(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRoleAllows(t *testing.T) {
	tests := []struct {
		have, min Role
		want      bool
	}{
		{RoleAdmin, RoleViewer, true},
		{RoleAdmin, RoleAdmin, true},
		{RoleEditor, RoleViewer, true},
		{RoleEditor, RoleAdmin, false},
		{RoleViewer, RoleEditor, false},
		{Role("ghost"), RoleViewer, false},
	}
	for _, tt := range tests {
		if got := tt.have.Allows(tt.min); got != tt.want {
			t.Errorf("%q.Allows(%q) = %v, want %v", tt.have, tt.min, got, tt.want)
		}
	}
}
