package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	pkgcontext "github.com/matheuscscp/ethmcast/pkg/context"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type (
	// Verdict is the outcome of filtering a received frame by its
	// destination MAC address.
	Verdict int

	// ListenerState is the state of a Listener.
	ListenerState int

	// Reporter is the output sink of a Listener.
	Reporter interface {
		Accepted(binding Binding, frame *Frame)
		Unexpected(binding Binding, frame *Frame)
	}

	// ListenerConfig contains the configs for NewListener().
	ListenerConfig struct {
		// MulticastGroups are accepted as destinations whether or not
		// they were joined, the kernel already gatekeeps membership.
		MulticastGroups []net.HardwareAddr

		// Reporter defaults to a text reporter writing to io.Discard.
		Reporter Reporter
	}

	// Listener reads frames from a Channel and dispatches them to a
	// Reporter. A frame is accepted if its dst MAC address is the MAC
	// address of the interface, the broadcast MAC address or one of
	// the configured multicast groups. Everything else is reported as
	// unexpected.
	Listener struct {
		channel    Channel
		binding    Binding
		accept     map[gopacket.Endpoint]struct{}
		reporter   Reporter
		state      ListenerState
		l          logrus.FieldLogger
		accepted   prometheus.Counter
		unexpected prometheus.Counter
	}

	textReporter struct {
		mu sync.Mutex
		w  io.Writer
	}
)

const (
	VerdictAccepted Verdict = iota
	VerdictUnexpected
)

const (
	StateRunning ListenerState = iota
	StateStopped
)

// NewListener creates a Listener in the running state.
func NewListener(channel Channel, conf ListenerConfig) *Listener {
	binding := channel.Binding()
	accept := map[gopacket.Endpoint]struct{}{
		gplayers.NewMACEndpoint(binding.HardwareAddr): {},
		BroadcastMACEndpoint():                        {},
	}
	for _, group := range conf.MulticastGroups {
		accept[gplayers.NewMACEndpoint(group)] = struct{}{}
	}
	reporter := conf.Reporter
	if reporter == nil {
		reporter = NewTextReporter(io.Discard)
	}
	return &Listener{
		channel:  channel,
		binding:  binding,
		accept:   accept,
		reporter: reporter,
		state:    StateRunning,
		l:        logrus.WithField("interface", binding.String()),
		accepted: framesRecvd.With(prometheus.Labels{
			labelNameInterface: binding.Name,
			labelNameVerdict:   VerdictAccepted.String(),
		}),
		unexpected: framesRecvd.With(prometheus.Labels{
			labelNameInterface: binding.Name,
			labelNameVerdict:   VerdictUnexpected.String(),
		}),
	}
}

// Run reads and dispatches frames until the channel reaches end of
// stream, ctx is cancelled or receiving fails. The first two cases
// are a clean stop and return nil. Either way the listener ends up
// in the stopped state.
func (l *Listener) Run(ctx context.Context) error {
	if l.state == StateStopped {
		return errors.New("listener is stopped")
	}
	defer func() { l.state = StateStopped }()

	buf := make([]byte, MaxFrameLength)
	for {
		n, err := l.channel.Recv(ctx, buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.l.Debug("end of stream")
				return nil
			}
			if pkgcontext.IsContextError(ctx, err) {
				l.l.Debug("listener context done")
				return nil
			}
			return err
		}

		frame, err := Decode(buf[:n])
		if err != nil {
			l.l.
				WithError(err).
				WithField("frame_buf", buf[:n]).
				Error("error decoding frame")
			continue
		}
		l.dispatch(frame)
	}
}

func (l *Listener) dispatch(frame *Frame) {
	verdict := l.Classify(frame)
	l.l.
		WithField("frame", frame.String()).
		WithField("verdict", verdict.String()).
		Debug("frame received")
	if verdict == VerdictUnexpected {
		l.unexpected.Inc()
		l.reporter.Unexpected(l.binding, frame)
		return
	}
	l.accepted.Inc()
	l.reporter.Accepted(l.binding, frame)
}

// Classify filters a frame by its destination MAC address.
func (l *Listener) Classify(frame *Frame) Verdict {
	if _, ok := l.accept[gplayers.NewMACEndpoint(frame.Destination)]; ok {
		return VerdictAccepted
	}
	return VerdictUnexpected
}

// State returns the current state of the listener.
func (l *Listener) State() ListenerState {
	return l.state
}

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictUnexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

func (s ListenerState) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("ListenerState(%d)", int(s))
	}
}

// NewTextReporter creates a Reporter writing one line per frame to w.
// Accepted frames are written as "<src> -> <dst> <payload>" with the
// payload as raw bytes, unexpected ones as
// "UNEXPECTED <src> -> <dst> on <interface>".
func NewTextReporter(w io.Writer) Reporter {
	return &textReporter{w: w}
}

func (t *textReporter) Accepted(binding Binding, frame *Frame) {
	line := make([]byte, 0, 2*len("00:00:00:00:00:00")+len(" ->  ")+len(frame.Payload)+1)
	line = append(line, fmt.Sprintf("%s -> %s ", frame.Source, frame.Destination)...)
	line = append(line, frame.Payload...)
	line = append(line, '\n')
	t.write(line)
}

func (t *textReporter) Unexpected(binding Binding, frame *Frame) {
	t.write([]byte(fmt.Sprintf("UNEXPECTED %s -> %s on %s\n", frame.Source, frame.Destination, binding.Name)))
}

func (t *textReporter) write(line []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(line); err != nil {
		logrus.
			WithError(err).
			Error("error writing frame report")
	}
}
