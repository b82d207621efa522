package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUEIPv4Pool_SkipsNetworkAddress(t *testing.T) {
	pool, err := NewUEIPv4Pool("10.60.0.0/24")
	require.NoError(t, err)

	ip, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "10.60.0.1", ip.String())
}

func TestUEIPv4Pool_SequentialAllocation(t *testing.T) {
	pool, err := NewUEIPv4Pool("10.60.0.0/24")
	require.NoError(t, err)

	want := []string{"10.60.0.1", "10.60.0.2", "10.60.0.3"}
	for _, w := range want {
		ip, err := pool.Allocate()
		require.NoError(t, err)
		assert.Equal(t, w, ip.String())
	}
	assert.Equal(t, 3, pool.AllocatedCount())
	assert.Equal(t, 251, pool.Available())
}

func TestUEIPv4Pool_ExhaustionExcludesBroadcast(t *testing.T) {
	pool, err := NewUEIPv4Pool("192.168.1.0/30")
	require.NoError(t, err)

	first, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", first.String())

	second, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.2", second.String())

	_, err = pool.Allocate()
	assert.Error(t, err, "broadcast address must not be allocated")
}

func TestUEIPv4Pool_ReleaseAllowsReuse(t *testing.T) {
	pool, err := NewUEIPv4Pool("192.168.1.0/30")
	require.NoError(t, err)

	first, err := pool.Allocate()
	require.NoError(t, err)
	_, err = pool.Allocate()
	require.NoError(t, err)

	pool.Release(first)
	assert.Equal(t, 1, pool.AllocatedCount())

	again, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, first.String(), again.String())
}

func TestUEIPv4Pool_ReleaseOutsideRangeIgnored(t *testing.T) {
	pool, err := NewUEIPv4Pool("10.60.0.0/24")
	require.NoError(t, err)

	ip, err := pool.Allocate()
	require.NoError(t, err)

	pool.Release([]byte{172, 16, 0, 1})
	assert.Equal(t, 1, pool.AllocatedCount())

	pool.Release(ip)
	assert.Equal(t, 0, pool.AllocatedCount())
}

func TestNewUEIPv4Pool_Invalid(t *testing.T) {
	cases := []struct {
		name string
		cidr string
	}{
		{"malformed", "not-a-cidr"},
		{"ipv6", "2001:db8::/64"},
		{"no hosts", "10.0.0.0/31"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewUEIPv4Pool(tc.cidr)
			assert.Error(t, err)
		})
	}
}
