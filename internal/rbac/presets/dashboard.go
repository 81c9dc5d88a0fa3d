package presets

import (
	"admin-dashboard/internal/policy"
	"admin-dashboard/internal/rbac"
)

const (
	RoleAdmin     rbac.Role = "admin"
	RoleModerator rbac.Role = "moderator"
	RoleUser      rbac.Role = "user"
)

const (
	CategoryUsers     rbac.Category = "users"
	CategoryProducts  rbac.Category = "products"
	CategoryAllergies rbac.Category = "allergies"
	CategoryReports   rbac.Category = "reports"
	CategorySystem    rbac.Category = "system"
	CategoryAdmin     rbac.Category = "admin"
)

const (
	PermissionUsersView    rbac.Permission = "users.view"
	PermissionUsersEdit    rbac.Permission = "users.edit"
	PermissionUsersDelete  rbac.Permission = "users.delete"
	PermissionManageRoles  rbac.Permission = policy.PermissionManageRoles
	PermissionProductsView rbac.Permission = "products.view"
	PermissionProductsEdit rbac.Permission = "products.edit"
	PermissionProductsMod  rbac.Permission = "products.moderate"
	PermissionAllergyView  rbac.Permission = "allergies.view"
	PermissionAllergyEdit  rbac.Permission = "allergies.edit"
	PermissionAllergyMod   rbac.Permission = "allergies.moderate"
	PermissionReportsView  rbac.Permission = "reports.view"
	PermissionReportsMod   rbac.Permission = "reports.resolve"
	PermissionAnalytics    rbac.Permission = policy.PermissionSystemAnalytics
	PermissionSettings     rbac.Permission = "system.settings"
	PermissionAdminAccess  rbac.Permission = policy.PermissionAdminAccess
)

const (
	SectionDashboard rbac.Section = "dashboard"
	SectionUsers     rbac.Section = "users"
	SectionProducts  rbac.Section = "products"
	SectionAllergies rbac.Section = "allergies"
	SectionReports   rbac.Section = "reports"
	SectionAnalytics rbac.Section = "analytics"
)

// Dashboard returns the RBAC configuration of the admin dashboard.
func Dashboard() rbac.Config {
	admin := make([]rbac.Permission, 0, len(policy.AdminPermissions()))
	for _, p := range policy.AdminPermissions() {
		admin = append(admin, rbac.Permission(p))
	}

	return rbac.Config{
		Roles: []rbac.RoleDefinition{
			{Name: RoleAdmin, Level: 3},
			{Name: RoleModerator, Level: 2},
			{Name: RoleUser, Level: 1},
		},
		Categories: []rbac.Category{
			CategoryUsers,
			CategoryProducts,
			CategoryAllergies,
			CategoryReports,
			CategorySystem,
			CategoryAdmin,
		},
		Permissions: []rbac.PermissionDefinition{
			{Name: PermissionUsersView, Category: CategoryUsers},
			{Name: PermissionUsersEdit, Category: CategoryUsers},
			{Name: PermissionUsersDelete, Category: CategoryUsers},
			{Name: PermissionManageRoles, Category: CategoryUsers},
			{Name: PermissionProductsView, Category: CategoryProducts},
			{Name: PermissionProductsEdit, Category: CategoryProducts},
			{Name: PermissionProductsMod, Category: CategoryProducts},
			{Name: PermissionAllergyView, Category: CategoryAllergies},
			{Name: PermissionAllergyEdit, Category: CategoryAllergies},
			{Name: PermissionAllergyMod, Category: CategoryAllergies},
			{Name: PermissionReportsView, Category: CategoryReports},
			{Name: PermissionReportsMod, Category: CategoryReports},
			{Name: PermissionAnalytics, Category: CategorySystem},
			{Name: PermissionSettings, Category: CategorySystem},
			{Name: PermissionAdminAccess, Category: CategoryAdmin},
		},
		AdminRole:        RoleAdmin,
		AdminPermissions: admin,
		Sections: []rbac.SectionRequirement{
			{Section: SectionDashboard, Path: "/dashboard", AnyOf: admin},
			{Section: SectionUsers, Path: "/users", AnyOf: []rbac.Permission{PermissionUsersView, PermissionManageRoles}},
			{Section: SectionProducts, Path: "/products", AnyOf: []rbac.Permission{PermissionProductsView, PermissionProductsMod}},
			{Section: SectionAllergies, Path: "/allergies", AnyOf: []rbac.Permission{PermissionAllergyView, PermissionAllergyMod}},
			{Section: SectionReports, Path: "/reports", AnyOf: []rbac.Permission{PermissionReportsView, PermissionReportsMod}},
			{Section: SectionAnalytics, Path: "/dashboard/analytics", AnyOf: []rbac.Permission{PermissionAnalytics}},
		},
	}
}
