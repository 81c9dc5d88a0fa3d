package rbac

// Role is a user's role in the dashboard (hierarchical).
type Role string

// Permission is a single capability carried by a user's token.
type Permission string

// Category groups permissions for display. It is a property of the
// permission definition, never derived from the permission text.
type Category string

// Section is a navigation entry of the dashboard.
type Section string

// Subject is the in-application user context. A nil Subject is an
// unauthenticated visitor.
type Subject struct {
	UserID      string
	Role        Role
	Permissions []Permission
}

// RoleDefinition defines a role and its privilege level
type RoleDefinition struct {
	Name  Role
	Level int
}

// PermissionDefinition ties a permission to its category.
type PermissionDefinition struct {
	Name     Permission
	Category Category
}

// SectionRequirement reveals a section to subjects holding any of AnyOf.
type SectionRequirement struct {
	Section Section
	Path    string
	AnyOf   []Permission
}

// Grouping maps every known category to the subject's permissions in it.
type Grouping map[Category][]Permission
