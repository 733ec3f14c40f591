package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/notifoxhq/notifox/pkg/pricing"
)

func newTestPlan(t *testing.T, name, price, currency string) *pricing.Plan {
	t.Helper()
	p, err := pricing.NewPlan(name, price, currency)
	require.NoError(t, err)
	return p
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := pricing.NewRegistry()
	require.NoError(t, r.Register(newTestPlan(t, "sms", "0.025", "USD")))

	got, err := r.Get("sms")
	require.NoError(t, err)
	assert.Equal(t, "sms", got.Name)
}

func TestRegistry_DuplicateRegister(t *testing.T) {
	r := pricing.NewRegistry()
	p := newTestPlan(t, "sms", "0.025", "USD")

	require.NoError(t, r.Register(p))
	err := r.Register(p)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := pricing.NewRegistry()
	_, err := r.Get("nonexistent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.ErrorIs(t, err, pricing.ErrPlanNotFound)

	_, err = r.Default()
	assert.Error(t, err)
}

func TestRegistry_Default(t *testing.T) {
	r := pricing.NewRegistry()
	require.NoError(t, r.Register(newTestPlan(t, "sms", "0.025", "USD")))
	require.NoError(t, r.Register(newTestPlan(t, "sms-eu", "0.0225", "EUR")))

	def, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "sms", def.Name)

	require.NoError(t, r.SetDefault("sms-eu"))
	def, err = r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "sms-eu", def.Name)

	assert.Error(t, r.SetDefault("missing"))
}

func TestRegistry_ListAndAll(t *testing.T) {
	r := pricing.NewRegistry()
	_ = r.Register(newTestPlan(t, "b", "0.02", "USD"))
	_ = r.Register(newTestPlan(t, "a", "0.01", "USD"))

	assert.Equal(t, []string{"a", "b"}, r.List())

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
}
