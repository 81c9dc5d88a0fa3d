package rbac

import (
	"fmt"
)

// Checker answers permission questions about a Subject using a validated
// Config. Every predicate fails closed: a nil subject, or one with no
// permissions loaded, is denied.
type Checker struct {
	config     Config
	roleIndex  map[Role]int
	validRoles map[Role]bool
	categoryOf map[Permission]Category
	adminPerms map[Permission]bool
}

// New creates a Checker from a validated Config
func New(cfg Config) (*Checker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rc := &Checker{config: cfg}
	rc.buildLookups()
	return rc, nil
}

// MustNew creates a Checker and panics on invalid config
func MustNew(cfg Config) *Checker {
	rc, err := New(cfg)
	if err != nil {
		panic(fmt.Sprintf(errMustNewPanicFmt, err))
	}
	return rc
}

func (rc *Checker) buildLookups() {
	cfg := rc.config

	rc.roleIndex = make(map[Role]int, len(cfg.Roles))
	rc.validRoles = make(map[Role]bool, len(cfg.Roles))
	for _, rd := range cfg.Roles {
		rc.roleIndex[rd.Name] = rd.Level
		rc.validRoles[rd.Name] = true
	}

	rc.categoryOf = make(map[Permission]Category, len(cfg.Permissions))
	for _, pd := range cfg.Permissions {
		rc.categoryOf[pd.Name] = pd.Category
	}

	rc.adminPerms = make(map[Permission]bool, len(cfg.AdminPermissions))
	for _, p := range cfg.AdminPermissions {
		rc.adminPerms[p] = true
	}
}

func loaded(subject *Subject) bool {
	return subject != nil && len(subject.Permissions) > 0
}

// HasPermission reports whether the subject holds required.
func (rc *Checker) HasPermission(subject *Subject, required Permission) bool {
	if !loaded(subject) {
		return false
	}
	for _, perm := range subject.Permissions {
		if perm == required {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the subject holds at least one of required.
func (rc *Checker) HasAnyPermission(subject *Subject, required ...Permission) bool {
	for _, p := range required {
		if rc.HasPermission(subject, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the subject holds every one of required.
// An empty requirement is satisfied by any subject with permissions loaded.
func (rc *Checker) HasAllPermissions(subject *Subject, required ...Permission) bool {
	if !loaded(subject) {
		return false
	}
	for _, p := range required {
		if !rc.HasPermission(subject, p) {
			return false
		}
	}
	return true
}

// HasRole reports whether the subject's role is one of roles. A subject
// without permissions holds no role here either.
func (rc *Checker) HasRole(subject *Subject, roles ...Role) bool {
	if !loaded(subject) || subject.Role == "" {
		return false
	}
	for _, r := range roles {
		if subject.Role == r {
			return true
		}
	}
	return false
}

// IsAdmin is the role shortcut: true only for the configured admin role.
func (rc *Checker) IsAdmin(subject *Subject) bool {
	return rc.HasRole(subject, rc.config.AdminRole)
}

// IsAdminCapable mirrors the edge policy: admin role or any admin permission.
func (rc *Checker) IsAdminCapable(subject *Subject) bool {
	if rc.IsAdmin(subject) {
		return true
	}
	if !loaded(subject) {
		return false
	}
	for _, p := range subject.Permissions {
		if rc.adminPerms[p] {
			return true
		}
	}
	return false
}

// Require returns nil when the subject holds required, else an ErrDenied wrap.
func (rc *Checker) Require(subject *Subject, required Permission) error {
	if subject == nil {
		return fmt.Errorf("%w: %w", ErrDenied, ErrNilSubject)
	}
	if !loaded(subject) {
		return fmt.Errorf("%w: %s", ErrDenied, errDeniedNoPermissionsLoaded)
	}
	if !rc.HasPermission(subject, required) {
		return fmt.Errorf("%w: "+errDeniedPermissionMissingFmt, ErrDenied, required)
	}
	return nil
}

// RequireRole checks if the subject has at least the minimum required role
func (rc *Checker) RequireRole(subject *Subject, minRole Role) error {
	if subject == nil {
		return fmt.Errorf("%w: %w", ErrDenied, ErrNilSubject)
	}
	if !loaded(subject) {
		return fmt.Errorf("%w: %s", ErrDenied, errDeniedNoPermissionsLoaded)
	}
	if !rc.IsRoleElevated(subject.Role, minRole) {
		return fmt.Errorf("%w: "+errDeniedMinRoleRequiredFmt, ErrDenied, minRole, subject.Role)
	}
	return nil
}

// IsRoleElevated checks if role1 has equal or higher privilege than role2
func (rc *Checker) IsRoleElevated(role1, role2 Role) bool {
	level1, exists1 := rc.roleIndex[role1]
	level2, exists2 := rc.roleIndex[role2]
	if !exists1 || !exists2 {
		return false
	}
	return level1 >= level2
}

// ValidateRole validates a role string against configured roles
func (rc *Checker) ValidateRole(role string) (Role, error) {
	r := Role(role)
	if rc.validRoles[r] {
		return r, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidRole, role)
}

// ParsePermissions keeps the known permissions of raw, in order, and drops
// everything else.
func (rc *Checker) ParsePermissions(raw []string) []Permission {
	perms := make([]Permission, 0, len(raw))
	for _, s := range raw {
		p := Permission(s)
		if _, ok := rc.categoryOf[p]; ok {
			perms = append(perms, p)
		}
	}
	return perms
}

// ValidatePermissions validates an array of permissions
func (rc *Checker) ValidatePermissions(permissions []Permission) error {
	if len(permissions) == 0 {
		return fmt.Errorf("%w: permissions array cannot be empty", ErrInvalidPermission)
	}
	for _, perm := range permissions {
		if _, ok := rc.categoryOf[perm]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidPermission, perm)
		}
	}
	return nil
}

// NewSubject builds a Subject from untrusted claim values. Unknown roles
// become the empty role and unknown permissions are dropped.
func (rc *Checker) NewSubject(userID, role string, permissions []string) *Subject {
	r, err := rc.ValidateRole(role)
	if err != nil {
		r = ""
	}
	return &Subject{
		UserID:      userID,
		Role:        r,
		Permissions: rc.ParsePermissions(permissions),
	}
}

// CategoryOf returns the category of a known permission.
func (rc *Checker) CategoryOf(p Permission) (Category, bool) {
	cat, ok := rc.categoryOf[p]
	return cat, ok
}

// GroupByCategory buckets permissions by their category. Every configured
// category is present in the result, possibly with no entries; unknown
// permissions are discarded.
func (rc *Checker) GroupByCategory(permissions []Permission) Grouping {
	groups := make(Grouping, len(rc.config.Categories))
	for _, cat := range rc.config.Categories {
		groups[cat] = []Permission{}
	}
	for _, p := range permissions {
		cat, ok := rc.categoryOf[p]
		if !ok {
			continue
		}
		groups[cat] = append(groups[cat], p)
	}
	return groups
}

// Categories returns the configured categories in display order.
func (rc *Checker) Categories() []Category {
	out := make([]Category, len(rc.config.Categories))
	copy(out, rc.config.Categories)
	return out
}

// Sections returns the navigation entries visible to the subject, in
// configured order.
func (rc *Checker) Sections(subject *Subject) []SectionRequirement {
	var visible []SectionRequirement
	for _, s := range rc.config.Sections {
		if rc.IsAdmin(subject) || rc.HasAnyPermission(subject, s.AnyOf...) {
			visible = append(visible, s)
		}
	}
	return visible
}
