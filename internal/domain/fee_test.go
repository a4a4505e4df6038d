package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardFeeType(t *testing.T) {
	cases := []struct {
		termDays int
		want     FeeType
	}{
		{termDays: 2, want: FeeCard2d},
		{termDays: 7, want: FeeCard7d},
		{termDays: 15, want: FeeCard15d},
		{termDays: 30, want: FeeCard30d},
		{termDays: 0, want: FeeCard2d},
		{termDays: 14, want: FeeCard2d},
		{termDays: -1, want: FeeCard2d},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CardFeeType(tc.termDays), "term %d", tc.termDays)
	}
}

func TestDefaultFeeTableCoversEveryFeeType(t *testing.T) {
	all := []FeeType{
		FeePix, FeeBoleto, FeeCard2d, FeeCard7d, FeeCard15d, FeeCard30d,
		FeeAcquirer, FeeWithdrawal, FeeReservePix, FeeReserveBoleto, FeeReserveCard,
	}
	for _, ft := range all {
		rule, ok := DefaultRule(ft)
		require.True(t, ok, "no default rule for %s", ft)
		assert.Equal(t, ft, rule.FeeType)
		assert.True(t, rule.IsActive)
	}
}

func TestDefaultRuleUnknownType(t *testing.T) {
	_, ok := DefaultRule(FeeType("bogus"))
	assert.False(t, ok)
}

func TestFeeRuleScope(t *testing.T) {
	global := FeeRule{}
	assert.Equal(t, ScopeGlobal, global.Scope())

	id := uuid.New()
	tenant := FeeRule{TenantID: &id}
	assert.Equal(t, ScopeTenant, tenant.Scope())
}
