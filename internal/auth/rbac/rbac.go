package rbac

import "go.pilab.hu/portal/domain"

// Permissions checked by the reference server.
const (
	PermProfileReadSelf   = "profile:read_self"
	PermPoliciesReadSelf  = "policies:read_self"
	PermCatalogRead       = "catalog:read"
	PermQuotationsCreate  = "quotations:create"
	PermDocumentsUpload   = "documents:upload"
	PermPaymentsCreate    = "payments:create"
	PermDashboardReadSelf = "dashboard:read_self"
	PermIssuanceStatsRead = "issuance_stats:read"
)

// RoleToPermissionsMap maps roles to their granted permissions.
var RoleToPermissionsMap = map[domain.Role][]string{
	domain.RoleUser: {
		PermProfileReadSelf,
		PermPoliciesReadSelf,
		PermCatalogRead,
		PermQuotationsCreate,
		PermDocumentsUpload,
		PermPaymentsCreate,
		PermDashboardReadSelf,
	},
	domain.RoleAdmin: {
		PermProfileReadSelf,
		PermCatalogRead,
		PermIssuanceStatsRead,
	},
}

// HasPermission reports whether any of roles grants perm.
func HasPermission(roles []domain.Role, perm string) bool {
	for _, r := range roles {
		for _, p := range RoleToPermissionsMap[r] {
			if p == perm {
				return true
			}
		}
	}
	return false
}
