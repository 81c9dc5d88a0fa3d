package rbac

import "errors"

var (
	ErrDenied            = errors.New("authorization denied")
	ErrNilSubject        = errors.New("subject is nil")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidPermission = errors.New("invalid permission")
)

const (
	errConfigRolesEmpty                   = "rbac config: Roles must not be empty"
	errConfigCategoriesEmpty              = "rbac config: Categories must not be empty"
	errConfigPermissionsEmpty             = "rbac config: Permissions must not be empty"
	errConfigAdminRoleEmpty               = "rbac config: AdminRole must not be empty"
	errConfigRoleNameEmpty                = "rbac config: role name must not be empty"
	errConfigDuplicateRoleNameFmt         = "rbac config: duplicate role name: %s"
	errConfigDuplicateRoleLevelFmt        = "rbac config: duplicate role level %d (roles %s and %s)"
	errConfigCategoryEmpty                = "rbac config: category must not be empty"
	errConfigDuplicateCategoryFmt         = "rbac config: duplicate category: %s"
	errConfigPermissionEmpty              = "rbac config: permission must not be empty"
	errConfigDuplicatePermissionFmt       = "rbac config: duplicate permission: %s"
	errConfigPermissionUnknownCategoryFmt = "rbac config: permission %s references unknown category: %s"
	errConfigAdminRoleUnknownFmt          = "rbac config: admin role is not a defined role: %s"
	errConfigAdminPermissionUnknownFmt    = "rbac config: admin permission is not defined: %s"
	errConfigSectionEmpty                 = "rbac config: section must not be empty"
	errConfigDuplicateSectionFmt          = "rbac config: duplicate section: %s"
	errConfigSectionNoPermissionsFmt      = "rbac config: section %s must require at least one permission"
	errConfigSectionUnknownPermissionFmt  = "rbac config: section %s references unknown permission: %s"
	errMustNewPanicFmt                    = "rbac.MustNew: %v"
	errDeniedMinRoleRequiredFmt           = "requires minimum role '%s', but user has role '%s'"
	errDeniedPermissionMissingFmt         = "missing permission '%s'"
	errDeniedNoPermissionsLoaded          = "no permissions loaded"
)
