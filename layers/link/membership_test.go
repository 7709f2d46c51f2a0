package link_test

import (
	"errors"
	"net"
	"testing"

	"github.com/matheuscscp/ethmcast/layers/link"
	"github.com/matheuscscp/ethmcast/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipJoinLeave(t *testing.T) {
	binding := test.NewBinding(t)
	ch := test.NewLoopbackChannel(binding)
	groups := link.DefaultMulticastGroups()
	m := link.NewMembershipManager(ch, binding, groups)

	require.NoError(t, m.Join())
	assert.Equal(t, groups, ch.Added)
	assert.Equal(t, groups, m.Joined())

	// joining again does not issue duplicate requests
	require.NoError(t, m.Join())
	assert.Len(t, ch.Added, 2)

	require.NoError(t, m.Leave())
	assert.Equal(t, groups, ch.Dropped)
	assert.Empty(t, m.Joined())

	// the membership set is empty, nothing else to leave
	require.NoError(t, m.Leave())
	assert.Len(t, ch.Dropped, 2)
}

func TestMembershipLeaveContinuesAfterFailure(t *testing.T) {
	binding := test.NewBinding(t)
	ch := test.NewLoopbackChannel(binding)
	groups := link.DefaultMulticastGroups()
	ch.DropErrs[groups[0].String()] = errors.New("no such device")
	m := link.NewMembershipManager(ch, binding, groups)

	require.NoError(t, m.Join())
	err := m.Leave()
	require.Error(t, err)
	assert.ErrorIs(t, err, link.ErrLeaveFailed)
	assert.Contains(t, err.Error(), groups[0].String())
	assert.NotContains(t, err.Error(), groups[1].String())

	// each group was left exactly once, the second one despite the
	// failure on the first
	assert.Equal(t, groups, ch.Dropped)
	assert.Empty(t, m.Joined())
}

func TestMembershipLeaveReportsEveryFailure(t *testing.T) {
	binding := test.NewBinding(t)
	ch := test.NewLoopbackChannel(binding)
	groups := link.DefaultMulticastGroups()
	for _, g := range groups {
		ch.DropErrs[g.String()] = errors.New("boom")
	}
	m := link.NewMembershipManager(ch, binding, groups)

	require.NoError(t, m.Join())
	err := m.Leave()
	require.Error(t, err)
	assert.Contains(t, err.Error(), groups[0].String())
	assert.Contains(t, err.Error(), groups[1].String())
	assert.Equal(t, groups, ch.Dropped)
}

func TestMembershipJoinFailure(t *testing.T) {
	binding := test.NewBinding(t)
	ch := test.NewLoopbackChannel(binding)
	groups := link.DefaultMulticastGroups()
	osErr := errors.New("operation not permitted")
	ch.AddErrs[groups[1].String()] = osErr
	m := link.NewMembershipManager(ch, binding, groups)

	err := m.Join()
	require.Error(t, err)
	assert.ErrorIs(t, err, link.ErrJoinFailed)
	assert.ErrorIs(t, err, osErr)

	// the first group was joined and must still be left
	assert.Equal(t, groups[:1], m.Joined())
	require.NoError(t, m.Leave())
	assert.Equal(t, groups[:1], ch.Dropped)
}

func TestMembershipCustomGroups(t *testing.T) {
	binding := test.NewBinding(t)
	ch := test.NewLoopbackChannel(binding)
	group := test.MustParseMAC(t, "33:33:00:00:00:01")
	m := link.NewMembershipManager(ch, binding, []net.HardwareAddr{group})

	assert.Equal(t, []net.HardwareAddr{group}, m.Groups())
	require.NoError(t, m.Join())
	require.NoError(t, m.Leave())
	assert.Equal(t, []net.HardwareAddr{group}, ch.Added)
	assert.Equal(t, []net.HardwareAddr{group}, ch.Dropped)
}
