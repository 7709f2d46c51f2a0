//go:build linux

package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	pkgcontext "github.com/matheuscscp/ethmcast/pkg/context"

	"github.com/mdlayher/packet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type packetChannel struct {
	ctx        context.Context
	cancelCtx  context.CancelFunc
	l          logrus.FieldLogger
	binding    Binding
	conn       *packet.Conn
	sentBytes  prometheus.Counter
	recvdBytes prometheus.Counter
}

func openChannel(conf ChannelConfig) (Channel, error) {
	ifi, err := net.InterfaceByName(conf.Interface)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInterfaceNotFound, conf.Interface, err)
	}
	binding, err := newBinding(ifi)
	if err != nil {
		return nil, err
	}

	// packet.Listen converts the protocol to network byte order
	conn, err := packet.Listen(ifi, packet.Raw, int(conf.EtherType), nil)
	if err != nil {
		return nil, fmt.Errorf("%w on %s: %w", ErrSocketCreation, conf.Interface, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	metricLabels := prometheus.Labels{labelNameInterface: ifi.Name}
	c := &packetChannel{
		ctx:       ctx,
		cancelCtx: cancel,
		l: logrus.
			WithField("interface", binding.String()).
			WithField("ether_type", EtherTypeString(conf.EtherType)),
		binding:    binding,
		conn:       conn,
		sentBytes:  sentBytes.With(metricLabels),
		recvdBytes: recvdBytes.With(metricLabels),
	}
	c.l.
		WithField("mac_address", binding.HardwareAddr.String()).
		Debug("packet socket open")
	return c, nil
}

func (c *packetChannel) Send(ctx context.Context, frame []byte, dst net.HardwareAddr) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// the frame already carries dst, but linux wants it in sockaddr_ll too
	n, err := c.conn.WriteTo(frame, &packet.Addr{HardwareAddr: dst})
	if err != nil {
		return n, fmt.Errorf("%w to %s on %s: %w", ErrSendFailed, dst, c.binding, err)
	}
	c.sentBytes.Add(float64(n))
	return n, nil
}

func (c *packetChannel) Recv(ctx context.Context, buf []byte) (int, error) {
	if c.ctx.Err() != nil {
		return 0, io.EOF
	}

	// initially, no timeout
	if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
		if isClosed(err) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("error setting read deadline to zero: %w", err)
	}

	// force timeout for the blocked read once ctx is done
	recvCtx, cancel := pkgcontext.WithCancelOnAnotherContext(ctx, c.ctx)
	defer cancel()
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-stop:
		case <-recvCtx.Done():
			if err := c.conn.SetReadDeadline(time.Now()); err != nil && !isClosed(err) {
				c.l.
					WithError(err).
					Error("error forcing timeout after context done")
			}
		}
	}()
	n, _, err := c.conn.ReadFrom(buf)
	close(stop)
	wg.Wait()

	if err != nil {
		if c.ctx.Err() != nil || isClosed(err) {
			return 0, io.EOF
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("error receiving frame on %s: %w", c.binding, err)
	}
	if n <= 0 {
		return 0, io.EOF
	}
	c.recvdBytes.Add(float64(n))
	return n, nil
}

// the socket is an *os.File underneath, closing it may surface
// either flavor of the closed error
func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed)
}

func (c *packetChannel) ConfigureForListening() error {
	return c.control(func(fd int) error {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return fmt.Errorf("%w SO_REUSEADDR on %s: %w", ErrSocketOption, c.binding, err)
		}
		if err := unix.BindToDevice(fd, c.binding.Name); err != nil {
			return fmt.Errorf("%w SO_BINDTODEVICE on %s: %w", ErrSocketOption, c.binding, err)
		}
		// level must be SOL_PACKET here, see packet(7)
		if err := unix.SetsockoptInt(fd, unix.SOL_PACKET, unix.PACKET_QDISC_BYPASS, 1); err != nil {
			return fmt.Errorf("%w PACKET_QDISC_BYPASS on %s: %w", ErrSocketOption, c.binding, err)
		}
		return nil
	})
}

func (c *packetChannel) SetDestinationFilter(addrs []net.HardwareAddr) error {
	prog, err := DestinationFilter(addrs)
	if err != nil {
		return err
	}
	if err := c.conn.SetBPF(prog); err != nil {
		return fmt.Errorf("%w SO_ATTACH_FILTER on %s: %w", ErrSocketOption, c.binding, err)
	}
	return nil
}

func (c *packetChannel) AddMembership(group net.HardwareAddr) error {
	return c.setMembership(unix.PACKET_ADD_MEMBERSHIP, group)
}

func (c *packetChannel) DropMembership(group net.HardwareAddr) error {
	return c.setMembership(unix.PACKET_DROP_MEMBERSHIP, group)
}

func (c *packetChannel) setMembership(opt int, group net.HardwareAddr) error {
	if len(group) != addrLength {
		return fmt.Errorf("%w: group %v", ErrInvalidAddress, group)
	}
	mreq := &unix.PacketMreq{
		Ifindex: int32(c.binding.Index),
		Type:    unix.PACKET_MR_MULTICAST,
		Alen:    addrLength,
	}
	copy(mreq.Address[:], group)
	return c.control(func(fd int) error {
		return unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, opt, mreq)
	})
}

func (c *packetChannel) control(f func(fd int) error) error {
	rc, err := c.conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("error getting raw socket: %w", err)
	}
	var opErr error
	if err := rc.Control(func(fd uintptr) { opErr = f(int(fd)) }); err != nil {
		return fmt.Errorf("error accessing socket descriptor: %w", err)
	}
	return opErr
}

func (c *packetChannel) Binding() Binding {
	return c.binding
}

func (c *packetChannel) Stats() (Stats, error) {
	s, err := c.conn.Stats()
	if err != nil {
		return Stats{}, fmt.Errorf("error reading packet socket stats: %w", err)
	}
	return Stats{
		Packets: s.Packets,
		Drops:   s.Drops,
	}, nil
}

func (c *packetChannel) Close() error {
	// cancel ctx
	var cancel context.CancelFunc
	cancel, c.cancelCtx = c.cancelCtx, nil
	if cancel == nil {
		return nil
	}
	cancel()

	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("error closing packet socket on %s: %w", c.binding, err)
	}
	c.l.Debug("packet socket closed")
	return nil
}
