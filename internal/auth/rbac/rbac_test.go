package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.pilab.hu/portal/domain"
)

func TestHasPermission(t *testing.T) {
	user := []domain.Role{domain.RoleUser}
	admin := []domain.Role{domain.RoleAdmin}

	assert.True(t, HasPermission(user, PermPaymentsCreate))
	assert.False(t, HasPermission(user, PermIssuanceStatsRead))
	assert.True(t, HasPermission(admin, PermIssuanceStatsRead))
	assert.False(t, HasPermission(nil, PermCatalogRead))
	assert.True(t, HasPermission([]domain.Role{domain.RoleUser, domain.RoleAdmin}, PermIssuanceStatsRead))
}
