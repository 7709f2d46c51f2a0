package test

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/matheuscscp/ethmcast/layers/link"

	"github.com/stretchr/testify/require"
)

type (
	// LoopbackChannel is an in-memory link.Channel: every frame sent
	// is received back, as if the interface looped it. Membership
	// requests are recorded and can be made to fail per group.
	LoopbackChannel struct {
		mu        sync.Mutex
		binding   link.Binding
		frames    chan []byte
		closed    chan struct{}
		closeOnce sync.Once

		ConfigureErr error
		RecvErr      error
		AddErrs      map[string]error
		DropErrs     map[string]error

		Configured bool
		Filter     []net.HardwareAddr
		Added      []net.HardwareAddr
		Dropped    []net.HardwareAddr
		Closes     int
	}

	// RecordingReporter is a link.Reporter keeping copies of the
	// frames reported to it.
	RecordingReporter struct {
		mu               sync.Mutex
		AcceptedFrames   []*link.Frame
		UnexpectedFrames []*link.Frame
	}
)

func NewLoopbackChannel(binding link.Binding) *LoopbackChannel {
	return &LoopbackChannel{
		binding:  binding,
		frames:   make(chan []byte, 1024),
		closed:   make(chan struct{}),
		AddErrs:  make(map[string]error),
		DropErrs: make(map[string]error),
	}
}

// Inject queues a frame for Recv without going through Send.
func (c *LoopbackChannel) Inject(frame []byte) {
	c.frames <- append([]byte(nil), frame...)
}

func (c *LoopbackChannel) Send(ctx context.Context, frame []byte, dst net.HardwareAddr) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
	}
	c.Inject(frame)
	return len(frame), nil
}

func (c *LoopbackChannel) Recv(ctx context.Context, buf []byte) (int, error) {
	c.mu.Lock()
	recvErr := c.RecvErr
	c.mu.Unlock()
	if recvErr != nil {
		return 0, recvErr
	}

	select {
	case frame := <-c.frames:
		return copy(buf, frame), nil
	default:
	}
	select {
	case frame := <-c.frames:
		return copy(buf, frame), nil
	case <-c.closed:
		return 0, io.EOF
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (c *LoopbackChannel) ConfigureForListening() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ConfigureErr != nil {
		return c.ConfigureErr
	}
	c.Configured = true
	return nil
}

func (c *LoopbackChannel) SetDestinationFilter(addrs []net.HardwareAddr) error {
	if _, err := link.DestinationFilter(addrs); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Filter = addrs
	return nil
}

func (c *LoopbackChannel) AddMembership(group net.HardwareAddr) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.AddErrs[group.String()]; err != nil {
		return err
	}
	c.Added = append(c.Added, group)
	return nil
}

func (c *LoopbackChannel) DropMembership(group net.HardwareAddr) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Dropped = append(c.Dropped, group)
	return c.DropErrs[group.String()]
}

func (c *LoopbackChannel) Binding() link.Binding {
	return c.binding
}

func (c *LoopbackChannel) Stats() (link.Stats, error) {
	return link.Stats{Packets: uint32(len(c.frames))}, nil
}

func (c *LoopbackChannel) Close() error {
	c.mu.Lock()
	c.Closes++
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (r *RecordingReporter) Accepted(binding link.Binding, frame *link.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.AcceptedFrames = append(r.AcceptedFrames, copyFrame(frame))
}

func (r *RecordingReporter) Unexpected(binding link.Binding, frame *link.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UnexpectedFrames = append(r.UnexpectedFrames, copyFrame(frame))
}

func copyFrame(frame *link.Frame) *link.Frame {
	return &link.Frame{
		Destination: append(net.HardwareAddr(nil), frame.Destination...),
		Source:      append(net.HardwareAddr(nil), frame.Source...),
		EtherType:   frame.EtherType,
		Payload:     append([]byte(nil), frame.Payload...),
	}
}

func MustParseMAC(t *testing.T, s string) net.HardwareAddr {
	a, err := net.ParseMAC(s)
	require.NoError(t, err)
	return a
}

func NewBinding(t *testing.T) link.Binding {
	return link.Binding{
		Name:         "veth0",
		Index:        7,
		HardwareAddr: MustParseMAC(t, "00:00:5e:00:53:ae"),
	}
}

// Memberships returns copies of the recorded add/drop requests.
func (c *LoopbackChannel) Memberships() (added, dropped []net.HardwareAddr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	added = append(added, c.Added...)
	dropped = append(dropped, c.Dropped...)
	return
}

// Counts returns how many frames were reported so far.
func (r *RecordingReporter) Counts() (accepted, unexpected int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.AcceptedFrames), len(r.UnexpectedFrames)
}
