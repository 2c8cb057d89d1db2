package domain

import "testing"

func TestRoleNormalize(t *testing.T) {
	cases := map[Role]Role{
		RoleUser:      RoleUser,
		RoleAssistant: RoleAssistant,
		"":            RoleUser,
		"system":      RoleUser,
		"Assistant":   RoleUser,
		"tool":        RoleUser,
	}
	for in, want := range cases {
		if got := in.Normalize(); got != want {
			t.Errorf("Role(%q).Normalize() = %q, want %q", in, got, want)
		}
	}
}
