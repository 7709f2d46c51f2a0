package link

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	pkgio "github.com/matheuscscp/ethmcast/pkg/io"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"
)

type (
	// CaptureConfig allows specifying configurations for capturing
	// traffic in the pcapng format.
	CaptureConfig struct {
		Filename string `yaml:"filename"`
	}

	capturingChannel struct {
		Channel
		mu     sync.Mutex
		l      logrus.FieldLogger
		file   *os.File
		writer *pcapgo.NgWriter
		closed bool
	}

	captureFile struct {
		f *os.File
		w *pcapgo.NgWriter
	}
)

func newCapturingChannel(c Channel, conf CaptureConfig) (*capturingChannel, error) {
	file, err := os.Create(conf.Filename)
	if err != nil {
		return nil, fmt.Errorf("error creating capture file %s: %w", conf.Filename, err)
	}
	writer, err := pcapgo.NewNgWriter(file, gplayers.LinkTypeEthernet)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("error creating pcapng writer: %w", err)
	}
	return &capturingChannel{
		Channel: c,
		l: logrus.
			WithField("interface", c.Binding().String()).
			WithField("capture_file", conf.Filename),
		file:   file,
		writer: writer,
	}, nil
}

func (c *capturingChannel) Send(ctx context.Context, frame []byte, dst net.HardwareAddr) (int, error) {
	n, err := c.Channel.Send(ctx, frame, dst)
	if err == nil {
		c.capture(frame[:n])
	}
	return n, err
}

func (c *capturingChannel) Recv(ctx context.Context, buf []byte) (int, error) {
	n, err := c.Channel.Recv(ctx, buf)
	if err == nil {
		c.capture(buf[:n])
	}
	return n, err
}

func (c *capturingChannel) capture(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	err := c.writer.WritePacket(gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(b),
		Length:        len(b),
	}, b)
	if err == nil {
		err = c.writer.Flush()
	}
	if err != nil {
		c.l.
			WithError(err).
			Error("error capturing frame")
	}
}

func (c *capturingChannel) Close() error {
	c.mu.Lock()
	closed := c.closed
	c.closed = true
	c.mu.Unlock()
	if closed {
		return nil
	}
	return pkgio.Close(c.Channel, &captureFile{c.file, c.writer})
}

func (c *captureFile) Close() error {
	if err := c.w.Flush(); err != nil {
		c.f.Close()
		return fmt.Errorf("error flushing pcapng writer: %w", err)
	}
	return c.f.Close()
}
