package link

import (
	"bytes"
	"fmt"
	"net"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type (
	// MembershipConn is the part of a Channel that issues multicast
	// add/drop membership requests on the bound interface.
	MembershipConn interface {
		AddMembership(group net.HardwareAddr) error
		DropMembership(group net.HardwareAddr) error
	}

	// MembershipManager joins and leaves a fixed set of multicast
	// groups. Every group joined successfully is left exactly once by
	// Leave(), even if leaving a previous group failed.
	MembershipManager struct {
		conn    MembershipConn
		binding Binding
		groups  []net.HardwareAddr
		joined  []net.HardwareAddr
		l       logrus.FieldLogger
		gauge   prometheus.Gauge
	}
)

// NewMembershipManager creates a MembershipManager for the given groups
// on the interface conn is bound to.
func NewMembershipManager(conn MembershipConn, binding Binding, groups []net.HardwareAddr) *MembershipManager {
	return &MembershipManager{
		conn:    conn,
		binding: binding,
		groups:  groups,
		l:       logrus.WithField("interface", binding.String()),
		gauge:   joinedGroups.With(prometheus.Labels{labelNameInterface: binding.Name}),
	}
}

// Join subscribes to every group, in order, and stops at the first
// failure. Groups joined before the failure remain in the membership
// set and must still be left with Leave().
func (m *MembershipManager) Join() error {
	m.l.Infof("going to subscribe to %s", formatAddrs(m.groups))
	for _, group := range m.groups {
		if containsAddr(m.joined, group) {
			continue
		}
		if err := m.conn.AddMembership(group); err != nil {
			return fmt.Errorf("%w %s on %s: %w", ErrJoinFailed, group, m.binding, err)
		}
		m.joined = append(m.joined, group)
		m.gauge.Inc()
	}
	return nil
}

// Leave unsubscribes from every joined group. A failure is logged and
// the remaining groups are still left; all failures are returned
// together. The membership set is empty afterwards.
func (m *MembershipManager) Leave() error {
	if len(m.joined) == 0 {
		return nil
	}
	m.l.Infof("going to unsubscribe from %s", formatAddrs(m.joined))

	var err error
	joined := m.joined
	m.joined = nil
	for _, group := range joined {
		m.gauge.Dec()
		if lErr := m.conn.DropMembership(group); lErr != nil {
			lErr = fmt.Errorf("%w %s on %s: %w", ErrLeaveFailed, group, m.binding, lErr)
			m.l.
				WithError(lErr).
				Error("error leaving multicast group")
			err = multierror.Append(err, lErr)
		}
	}
	if err != nil {
		return err
	}

	m.l.Infof("successfully unsubscribed from %s", formatAddrs(joined))
	return nil
}

// Groups returns the groups managed by m.
func (m *MembershipManager) Groups() []net.HardwareAddr {
	return m.groups
}

// Joined returns a copy of the membership set.
func (m *MembershipManager) Joined() []net.HardwareAddr {
	return append([]net.HardwareAddr(nil), m.joined...)
}

func containsAddr(addrs []net.HardwareAddr, addr net.HardwareAddr) bool {
	for _, a := range addrs {
		if bytes.Equal(a, addr) {
			return true
		}
	}
	return false
}

func formatAddrs(addrs []net.HardwareAddr) string {
	s := make([]string, len(addrs))
	for i, a := range addrs {
		s[i] = a.String()
	}
	return strings.Join(s, " and ")
}
