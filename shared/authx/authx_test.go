package authx

import "testing"

func TestParseRoles(t *testing.T) {
	claims := map[string]any{
		"roles": []any{"facilities", "viewer"},
		"scp":   "readings:read alerts:dismiss",
	}
	roles := parseRoles(claims)
	if len(roles) != 4 {
		t.Fatalf("expected 4 roles, got %v", roles)
	}
}

func TestParseRolesDeduplicates(t *testing.T) {
	claims := map[string]any{
		"roles": []any{"viewer", "viewer"},
		"role":  "viewer",
	}
	roles := parseRoles(claims)
	if len(roles) != 1 || roles[0] != "viewer" {
		t.Fatalf("expected single viewer role, got %v", roles)
	}
}

func TestNewJWTVerifierValidation(t *testing.T) {
	if _, err := NewJWTVerifier("", "aud", "", 60, 0); err == nil {
		t.Fatalf("expected error for missing issuer")
	}
	if _, err := NewJWTVerifier("https://issuer.example.com", "", "", 60, 0); err == nil {
		t.Fatalf("expected error for missing audience")
	}
}
