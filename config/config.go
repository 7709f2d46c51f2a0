package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/matheuscscp/ethmcast/internal/session"
	"github.com/matheuscscp/ethmcast/layers/link"

	"gopkg.in/yaml.v3"
)

const (
	DefaultInterface = "eth0"
	DefaultMessage   = "Hello"
)

// ErrInvalidConfig is wrapped by every syntax or range error found in
// the configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the user facing configuration, read from yaml and/or
// command line flags. Addresses and the ethertype are kept as text
// until Session() validates them.
type Config struct {
	Interface       string              `yaml:"interface"`
	EtherType       string              `yaml:"etherType"`
	Destination     string              `yaml:"destination"`
	Message         string              `yaml:"message"`
	Listen          bool                `yaml:"listen"`
	Multicast       bool                `yaml:"multicast"`
	MulticastGroups []string            `yaml:"multicastGroups"`
	KernelFilter    bool                `yaml:"kernelFilter"`
	MetricsAddr     string              `yaml:"metricsAddr"`
	Capture         *link.CaptureConfig `yaml:"capture"`
}

func ReadYAML(file string, v interface{}) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("error reading yaml config file: %w", err)
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		return fmt.Errorf("error decoding config from yaml: %w", err)
	}
	return nil
}

// Default returns the configuration used when nothing is specified:
// broadcast "Hello" on eth0 with the default ethertype.
func Default() Config {
	groups := link.DefaultMulticastGroups()
	conf := Config{
		Interface:       DefaultInterface,
		EtherType:       fmt.Sprintf("0x%04x", link.DefaultEtherType),
		Destination:     link.BroadcastMACAddress().String(),
		Message:         DefaultMessage,
		MulticastGroups: make([]string, len(groups)),
	}
	for i, g := range groups {
		conf.MulticastGroups[i] = g.String()
	}
	return conf
}

// Session validates the configuration and converts it into the
// configuration of a session.
func (c Config) Session() (session.Config, error) {
	if c.Interface == "" {
		return session.Config{}, fmt.Errorf("%w: empty interface name", ErrInvalidConfig)
	}
	etherType, err := ParseEtherType(c.EtherType)
	if err != nil {
		return session.Config{}, err
	}
	dst, err := ParseHardwareAddr(c.Destination)
	if err != nil {
		return session.Config{}, fmt.Errorf("error parsing destination: %w", err)
	}
	groups := make([]net.HardwareAddr, 0, len(c.MulticastGroups))
	for _, s := range c.MulticastGroups {
		g, err := ParseHardwareAddr(s)
		if err != nil {
			return session.Config{}, fmt.Errorf("error parsing multicast group: %w", err)
		}
		groups = append(groups, g)
	}
	if c.Multicast && len(groups) == 0 {
		return session.Config{}, fmt.Errorf("%w: multicast mode without multicast groups", ErrInvalidConfig)
	}

	return session.Config{
		Channel: link.ChannelConfig{
			Interface: c.Interface,
			EtherType: etherType,
			Capture:   c.Capture,
		},
		Destination:     dst,
		Message:         []byte(c.Message),
		Listen:          c.Listen,
		Multicast:       c.Multicast,
		MulticastGroups: groups,
		KernelFilter:    c.KernelFilter,
	}, nil
}

// ParseEtherType parses a hexadecimal ethertype with an optional 0x
// prefix. The whole string must be consumed and the value must be in
// [0x0600, 0xffff].
func ParseEtherType(s string) (uint16, error) {
	digits := strings.TrimSpace(s)
	if len(digits) >= 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: cannot read ethertype '%s', must be in the form 0xnnnn", ErrInvalidConfig, s)
	}
	if v < link.MinEtherType || v > 0xffff {
		return 0, fmt.Errorf("%w: invalid ethertype '%s', must be between 0x%04x and 0xffff",
			ErrInvalidConfig, s, link.MinEtherType)
	}
	return uint16(v), nil
}

// ParseHardwareAddr parses a 6-byte MAC address written as six
// colon-separated groups of one or two hex digits, e.g.
// 01:00:5e:00:00:10 or 1:0:5e:0:0:10.
func ParseHardwareAddr(s string) (net.HardwareAddr, error) {
	groups := strings.Split(s, ":")
	if len(groups) != 6 {
		return nil, fmt.Errorf("%w: mac address '%s' must have 6 colon-separated groups", ErrInvalidConfig, s)
	}
	addr := make(net.HardwareAddr, len(groups))
	for i, g := range groups {
		if len(g) < 1 || len(g) > 2 {
			return nil, fmt.Errorf("%w: mac address '%s' has invalid group '%s'", ErrInvalidConfig, s, g)
		}
		v, err := strconv.ParseUint(g, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: mac address '%s' has invalid group '%s': %w", ErrInvalidConfig, s, g, err)
		}
		addr[i] = byte(v)
	}
	return addr, nil
}
