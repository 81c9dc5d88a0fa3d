package rbac_test

import (
	"strings"
	"testing"

	"admin-dashboard/internal/rbac"
	"admin-dashboard/internal/rbac/presets"
)

func validBaseConfig() rbac.Config {
	return rbac.Config{
		Roles:      []rbac.RoleDefinition{{Name: "admin", Level: 2}, {Name: "user", Level: 1}},
		Categories: []rbac.Category{"users", "admin"},
		Permissions: []rbac.PermissionDefinition{
			{Name: "users.view", Category: "users"},
			{Name: "admin.access", Category: "admin"},
		},
		AdminRole:        "admin",
		AdminPermissions: []rbac.Permission{"admin.access"},
		Sections: []rbac.SectionRequirement{
			{Section: "users", Path: "/users", AnyOf: []rbac.Permission{"users.view"}},
		},
	}
}

func TestValidatePreset(t *testing.T) {
	cfg := presets.Dashboard()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Dashboard preset should be valid: %v", err)
	}
}

func TestValidateEmptyConfig(t *testing.T) {
	cfg := rbac.Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty config should fail validation")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*rbac.Config)
		wantErr string
	}{
		{"empty roles", func(c *rbac.Config) { c.Roles = nil }, "Roles"},
		{"empty categories", func(c *rbac.Config) { c.Categories = nil }, "Categories"},
		{"empty permissions", func(c *rbac.Config) { c.Permissions = nil }, "Permissions"},
		{"empty admin role", func(c *rbac.Config) { c.AdminRole = "" }, "AdminRole"},
		{"duplicate role name", func(c *rbac.Config) {
			c.Roles = append(c.Roles, rbac.RoleDefinition{Name: "admin", Level: 9})
		}, "duplicate role name"},
		{"duplicate role level", func(c *rbac.Config) {
			c.Roles = append(c.Roles, rbac.RoleDefinition{Name: "moderator", Level: 2})
		}, "duplicate role level"},
		{"unknown admin role", func(c *rbac.Config) { c.AdminRole = "root" }, "admin role"},
		{"duplicate category", func(c *rbac.Config) {
			c.Categories = append(c.Categories, "users")
		}, "duplicate category"},
		{"duplicate permission", func(c *rbac.Config) {
			c.Permissions = append(c.Permissions, rbac.PermissionDefinition{Name: "users.view", Category: "users"})
		}, "duplicate permission"},
		{"permission in unknown category", func(c *rbac.Config) {
			c.Permissions = append(c.Permissions, rbac.PermissionDefinition{Name: "billing.view", Category: "billing"})
		}, "unknown category"},
		{"unknown admin permission", func(c *rbac.Config) {
			c.AdminPermissions = []rbac.Permission{"system.analytics"}
		}, "admin permission"},
		{"section without permissions", func(c *rbac.Config) {
			c.Sections = append(c.Sections, rbac.SectionRequirement{Section: "reports"})
		}, "at least one permission"},
		{"section with unknown permission", func(c *rbac.Config) {
			c.Sections = append(c.Sections, rbac.SectionRequirement{Section: "reports", AnyOf: []rbac.Permission{"reports.view"}})
		}, "unknown permission"},
		{"duplicate section", func(c *rbac.Config) {
			c.Sections = append(c.Sections, c.Sections[0])
		}, "duplicate section"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestMustNewPanicsOnInvalidConfig(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustNew should panic on invalid config")
		}
	}()
	rbac.MustNew(rbac.Config{})
}
