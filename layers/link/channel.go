package link

import (
	"context"
	"fmt"
	"net"
)

type (
	// Channel represents one open raw link-layer socket bound to a
	// network interface. The kernel only delivers frames carrying the
	// ethertype the channel was opened with.
	//
	// Recv returns io.EOF once the channel is closed or the socket
	// reports a zero-length read. Cancelling the ctx passed to Recv
	// unblocks the read and returns the context error.
	Channel interface {
		MembershipConn
		Send(ctx context.Context, frame []byte, dst net.HardwareAddr) (int, error)
		Recv(ctx context.Context, buf []byte) (int, error)
		ConfigureForListening() error
		SetDestinationFilter(addrs []net.HardwareAddr) error
		Binding() Binding
		Stats() (Stats, error)
		Close() error
	}

	// ChannelConfig contains the configs for Open().
	ChannelConfig struct {
		Interface string `yaml:"interface"`
		EtherType uint16 `yaml:"-"`

		Capture *CaptureConfig `yaml:"capture"`
	}

	// Binding is the interface a Channel is bound to, resolved once
	// when the channel is opened.
	Binding struct {
		Name         string
		Index        int
		HardwareAddr net.HardwareAddr
	}

	// Stats are the kernel counters of a packet socket.
	Stats struct {
		Packets uint32
		Drops   uint32
	}
)

// Open creates a Channel from config. If a capture is configured,
// every frame sent or received through the channel is also written
// to the capture file.
func Open(conf ChannelConfig) (Channel, error) {
	c, err := openChannel(conf)
	if err != nil {
		return nil, err
	}
	if conf.Capture == nil {
		return c, nil
	}
	cc, err := newCapturingChannel(c, *conf.Capture)
	if err != nil {
		c.Close()
		return nil, err
	}
	return cc, nil
}

// newBinding resolves the binding of ifi. Go reports an all-zero
// hardware address (e.g. on lo) as an empty one.
func newBinding(ifi *net.Interface) (Binding, error) {
	addr := ifi.HardwareAddr
	switch len(addr) {
	case 0:
		addr = make(net.HardwareAddr, addrLength)
	case addrLength:
	default:
		return Binding{}, fmt.Errorf("%w: interface %s has hardware address '%s'",
			ErrInvalidAddress, ifi.Name, addr)
	}
	return Binding{
		Name:         ifi.Name,
		Index:        ifi.Index,
		HardwareAddr: addr,
	}, nil
}

func (b Binding) String() string {
	return fmt.Sprintf("%s(%d)", b.Name, b.Index)
}
