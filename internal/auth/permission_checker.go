package auth

const (
	PermissionApproveContributions = "approve_contributions"
	PermissionRejectContributions  = "reject_contributions"
	PermissionAdmin                = "admin"
)

type PermissionChecker interface {
	CanApprove(userPermissions []string) bool
	CanReject(userPermissions []string) bool
	CanReset(userPermissions []string) bool
	IsAdmin(userPermissions []string) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) CanApprove(userPermissions []string) bool {
	return hasAnyPermission(userPermissions, PermissionApproveContributions, PermissionAdmin)
}

func (c *DefaultPermissionChecker) CanReject(userPermissions []string) bool {
	return hasAnyPermission(userPermissions, PermissionRejectContributions, PermissionAdmin)
}

// CanReset requires both review permissions, since a reset reopens either outcome.
func (c *DefaultPermissionChecker) CanReset(userPermissions []string) bool {
	if c.IsAdmin(userPermissions) {
		return true
	}
	return hasAnyPermission(userPermissions, PermissionApproveContributions) &&
		hasAnyPermission(userPermissions, PermissionRejectContributions)
}

func (c *DefaultPermissionChecker) IsAdmin(userPermissions []string) bool {
	return hasAnyPermission(userPermissions, PermissionAdmin)
}

func hasAnyPermission(userPermissions []string, required ...string) bool {
	for _, userPerm := range userPermissions {
		for _, requiredPerm := range required {
			if userPerm == requiredPerm {
				return true
			}
		}
	}
	return false
}
