package rbac

import "fmt"

// Config holds all RBAC configuration
type Config struct {
	Roles       []RoleDefinition
	Categories  []Category
	Permissions []PermissionDefinition
	// AdminRole is the role that passes every admin shortcut check.
	AdminRole Role
	// AdminPermissions grant admin capability to any role holding one of them.
	AdminPermissions []Permission
	Sections         []SectionRequirement
}

// Validate checks internal consistency of the Config
func (c *Config) Validate() error {
	if len(c.Roles) == 0 {
		return fmt.Errorf(errConfigRolesEmpty)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf(errConfigCategoriesEmpty)
	}
	if len(c.Permissions) == 0 {
		return fmt.Errorf(errConfigPermissionsEmpty)
	}
	if c.AdminRole == "" {
		return fmt.Errorf(errConfigAdminRoleEmpty)
	}

	roleNames := make(map[Role]bool, len(c.Roles))
	roleLevels := make(map[int]Role, len(c.Roles))
	for _, rd := range c.Roles {
		if rd.Name == "" {
			return fmt.Errorf(errConfigRoleNameEmpty)
		}
		if roleNames[rd.Name] {
			return fmt.Errorf(errConfigDuplicateRoleNameFmt, rd.Name)
		}
		if existing, dup := roleLevels[rd.Level]; dup {
			return fmt.Errorf(errConfigDuplicateRoleLevelFmt, rd.Level, existing, rd.Name)
		}
		roleNames[rd.Name] = true
		roleLevels[rd.Level] = rd.Name
	}
	if !roleNames[c.AdminRole] {
		return fmt.Errorf(errConfigAdminRoleUnknownFmt, c.AdminRole)
	}

	catSet := make(map[Category]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat == "" {
			return fmt.Errorf(errConfigCategoryEmpty)
		}
		if catSet[cat] {
			return fmt.Errorf(errConfigDuplicateCategoryFmt, cat)
		}
		catSet[cat] = true
	}

	permSet := make(map[Permission]bool, len(c.Permissions))
	for _, pd := range c.Permissions {
		if pd.Name == "" {
			return fmt.Errorf(errConfigPermissionEmpty)
		}
		if permSet[pd.Name] {
			return fmt.Errorf(errConfigDuplicatePermissionFmt, pd.Name)
		}
		if !catSet[pd.Category] {
			return fmt.Errorf(errConfigPermissionUnknownCategoryFmt, pd.Name, pd.Category)
		}
		permSet[pd.Name] = true
	}

	for _, p := range c.AdminPermissions {
		if !permSet[p] {
			return fmt.Errorf(errConfigAdminPermissionUnknownFmt, p)
		}
	}

	sectionSet := make(map[Section]bool, len(c.Sections))
	for _, s := range c.Sections {
		if s.Section == "" {
			return fmt.Errorf(errConfigSectionEmpty)
		}
		if sectionSet[s.Section] {
			return fmt.Errorf(errConfigDuplicateSectionFmt, s.Section)
		}
		if len(s.AnyOf) == 0 {
			return fmt.Errorf(errConfigSectionNoPermissionsFmt, s.Section)
		}
		for _, p := range s.AnyOf {
			if !permSet[p] {
				return fmt.Errorf(errConfigSectionUnknownPermissionFmt, s.Section, p)
			}
		}
		sectionSet[s.Section] = true
	}

	return nil
}
