package session

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/matheuscscp/ethmcast/layers/link"
	pkgcontext "github.com/matheuscscp/ethmcast/pkg/context"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

type (
	// Config contains the validated configs of a Session.
	Config struct {
		Channel         link.ChannelConfig
		Destination     net.HardwareAddr
		Message         []byte
		Listen          bool
		Multicast       bool
		MulticastGroups []net.HardwareAddr
		KernelFilter    bool
	}

	// Session holds everything the shutdown path needs to reach: the
	// channel and, in listener+multicast mode, the membership manager.
	// Shutdown() runs at most once, whichever path calls it first.
	Session struct {
		conf         *Config
		channel      link.Channel
		membership   *link.MembershipManager
		l            logrus.FieldLogger
		shutdownOnce sync.Once
		shutdownErr  error
	}
)

// Open opens the channel described by conf and creates a Session
// owning it.
func Open(conf Config) (*Session, error) {
	channel, err := link.Open(conf.Channel)
	if err != nil {
		return nil, err
	}
	return New(conf, channel), nil
}

// New creates a Session owning channel.
func New(conf Config, channel link.Channel) *Session {
	return &Session{
		conf:    &conf,
		channel: channel,
		l:       logrus.WithField("interface", channel.Binding().String()),
	}
}

// Run sends one frame or, in listener mode, receives frames until ctx
// is cancelled or the channel reaches end of stream. Accepted and
// unexpected frames are written to reporter.
//
// Run always shuts the session down before returning, so membership
// is left and the channel is closed on every path.
func (s *Session) Run(ctx context.Context, reporter link.Reporter) (err error) {
	defer func() {
		if sErr := s.Shutdown(); sErr != nil {
			if err == nil {
				err = sErr
			} else {
				err = multierror.Append(err, sErr)
			}
		}
	}()

	if !s.conf.Listen {
		return s.send(ctx)
	}
	return s.listen(ctx, reporter)
}

func (s *Session) send(ctx context.Context) error {
	binding := s.channel.Binding()
	frame, err := link.Encode(s.conf.Destination, binding.HardwareAddr, s.conf.Channel.EtherType, s.conf.Message)
	if err != nil {
		return fmt.Errorf("error encoding frame: %w", err)
	}
	n, err := s.channel.Send(ctx, frame, s.conf.Destination)
	if pkgcontext.IsContextError(ctx, err) {
		s.l.Info("interrupted before sending, shutting down")
		return nil
	}
	if err != nil {
		return err
	}
	s.l.
		WithField("destination", s.conf.Destination.String()).
		WithField("ether_type", link.EtherTypeString(s.conf.Channel.EtherType)).
		WithField("bytes", n).
		Info("frame sent")
	return nil
}

func (s *Session) listen(ctx context.Context, reporter link.Reporter) error {
	binding := s.channel.Binding()
	if err := s.channel.ConfigureForListening(); err != nil {
		return err
	}
	if s.conf.KernelFilter {
		addrs := append([]net.HardwareAddr{binding.HardwareAddr, link.BroadcastMACAddress()}, s.conf.MulticastGroups...)
		if err := s.channel.SetDestinationFilter(addrs); err != nil {
			return err
		}
	}
	if s.conf.Multicast {
		s.membership = link.NewMembershipManager(s.channel, binding, s.conf.MulticastGroups)
		if err := s.membership.Join(); err != nil {
			return err
		}
	}

	listener := link.NewListener(s.channel, link.ListenerConfig{
		MulticastGroups: s.conf.MulticastGroups,
		Reporter:        reporter,
	})
	s.l.
		WithField("mac_address", binding.HardwareAddr.String()).
		WithField("ether_type", link.EtherTypeString(s.conf.Channel.EtherType)).
		Info("listening")
	err := listener.Run(ctx)
	if ctx.Err() != nil {
		s.l.Info("interrupted, shutting down")
	}
	return err
}

// Shutdown leaves every joined multicast group and then closes the
// channel. Closing is attempted even if leaving fails. Only the first
// call does anything, later calls return the same result.
func (s *Session) Shutdown() error {
	s.shutdownOnce.Do(func() {
		var err error
		if s.membership != nil {
			if lErr := s.membership.Leave(); lErr != nil {
				err = multierror.Append(err, lErr)
			}
		}
		if s.conf.Listen {
			s.logStats()
		}
		if cErr := s.channel.Close(); cErr != nil {
			err = multierror.Append(err, cErr)
		}
		s.shutdownErr = err
	})
	return s.shutdownErr
}

// Membership returns the membership manager, nil unless the session
// runs in listener+multicast mode.
func (s *Session) Membership() *link.MembershipManager {
	return s.membership
}

func (s *Session) logStats() {
	stats, err := s.channel.Stats()
	if err != nil {
		s.l.
			WithError(err).
			Warn("error reading channel stats")
		return
	}
	s.l.
		WithField("packets", stats.Packets).
		WithField("drops", stats.Drops).
		Info("channel stats")
}
