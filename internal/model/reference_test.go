package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodes() []ReferenceCode {
	return []ReferenceCode{
		{Code: "MM_REG_USERS", Label: "Registered mobile money users", Pillar: "digital_payments"},
		{Code: "MM_ACTIVE_USERS", Label: "Active mobile money users (90d)", Pillar: "digital_payments"},
		{Code: "ACC_OWNERSHIP", Label: "Account ownership rate", Pillar: "access", Unit: "percent"},
	}
}

func TestReferenceRegistry_ByCode(t *testing.T) {
	t.Parallel()

	reg := NewReferenceRegistry(testCodes())

	c := reg.ByCode("mm_reg_users")
	require.NotNil(t, c)
	assert.Equal(t, "Registered mobile money users", c.Label)

	c = reg.ByCode("  ACC_OWNERSHIP ")
	require.NotNil(t, c)
	assert.Equal(t, "percent", c.Unit)

	assert.Nil(t, reg.ByCode("NOPE"))
}

func TestReferenceRegistry_ByPillar(t *testing.T) {
	t.Parallel()

	reg := NewReferenceRegistry(testCodes())
	assert.Len(t, reg.ByPillar("digital_payments"), 2)
	assert.Len(t, reg.ByPillar("access"), 1)
	assert.Empty(t, reg.ByPillar("credit"))
}

func TestReferenceRegistry_Pillars(t *testing.T) {
	t.Parallel()

	reg := NewReferenceRegistry(testCodes())
	assert.Equal(t, []string{"digital_payments", "access"}, reg.Pillars())
}
