package config_test

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/matheuscscp/ethmcast/config"
	"github.com/matheuscscp/ethmcast/layers/link"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEtherType(t *testing.T) {
	for _, tt := range []struct {
		s        string
		expected uint16
	}{
		{"0x0600", 0x0600},
		{"0600", 0x0600},
		{"0xffff", 0xffff},
		{"0XFFFF", 0xffff},
		{"0x80ab", 0x80ab},
		{"88b5", 0x88b5},
	} {
		v, err := config.ParseEtherType(tt.s)
		require.NoError(t, err, tt.s)
		assert.Equal(t, tt.expected, v, tt.s)
	}

	for _, s := range []string{
		"0x0000",
		"0x05ff",
		"0x10000",
		"0xfffff",
		"",
		"0x",
		"xyz",
		"0x80abzz",
		"-0x0800",
		"0x0800 extra",
		"0x0X600",
		"0X0x600",
		"0x0x0800",
		"x0800",
	} {
		_, err := config.ParseEtherType(s)
		assert.ErrorIs(t, err, config.ErrInvalidConfig, s)
	}
}

func TestParseHardwareAddr(t *testing.T) {
	addr, err := config.ParseHardwareAddr("01:00:5e:00:00:10")
	require.NoError(t, err)
	assert.Equal(t, net.HardwareAddr{0x01, 0x00, 0x5e, 0x00, 0x00, 0x10}, addr)

	addr, err = config.ParseHardwareAddr("1:0:5e:0:0:10")
	require.NoError(t, err)
	assert.Equal(t, net.HardwareAddr{0x01, 0x00, 0x5e, 0x00, 0x00, 0x10}, addr)

	addr, err = config.ParseHardwareAddr("FF:ff:Ff:fF:ff:ff")
	require.NoError(t, err)
	assert.Equal(t, link.BroadcastMACAddress(), addr)

	for _, s := range []string{
		"",
		"01:00:5e:00:00",
		"01-00-5e-00-00-10",
		"0100.5e00.0010",
		"01:00:5e:00:00:10:00:00",
		"01:00:5e:00:00:zz",
		"001:00:5e:00:00:10",
		"01::5e:00:00:10",
		"01:00:5e:00:00:+1",
		"01:00:5e:00:00:10:",
	} {
		_, err := config.ParseHardwareAddr(s)
		assert.ErrorIs(t, err, config.ErrInvalidConfig, s)
	}
}

func TestDefaultSession(t *testing.T) {
	conf, err := config.Default().Session()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultInterface, conf.Channel.Interface)
	assert.Equal(t, link.DefaultEtherType, conf.Channel.EtherType)
	assert.Nil(t, conf.Channel.Capture)
	assert.Equal(t, link.BroadcastMACAddress(), conf.Destination)
	assert.Equal(t, []byte(config.DefaultMessage), conf.Message)
	assert.Equal(t, link.DefaultMulticastGroups(), conf.MulticastGroups)
	assert.False(t, conf.Listen)
	assert.False(t, conf.Multicast)
}

func TestSessionInvalid(t *testing.T) {
	for name, mutate := range map[string]func(*config.Config){
		"interface":   func(c *config.Config) { c.Interface = "" },
		"ethertype":   func(c *config.Config) { c.EtherType = "0x0042" },
		"destination": func(c *config.Config) { c.Destination = "ff:ff:ff" },
		"group":       func(c *config.Config) { c.MulticastGroups = []string{"nope"} },
		"no groups": func(c *config.Config) {
			c.Multicast = true
			c.MulticastGroups = nil
		},
	} {
		t.Run(name, func(t *testing.T) {
			c := config.Default()
			mutate(&c)
			_, err := c.Session()
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestReadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "ethmcast.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
interface: enp0s8
etherType: "0x88b5"
listen: true
multicast: true
multicastGroups:
- 01:00:5e:00:00:42
capture:
  filename: /tmp/ethmcast.pcapng
`), 0o644))

	conf := config.Default()
	require.NoError(t, config.ReadYAML(file, &conf))
	assert.Equal(t, "enp0s8", conf.Interface)
	assert.Equal(t, config.DefaultMessage, conf.Message)

	s, err := conf.Session()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x88b5), s.Channel.EtherType)
	assert.True(t, s.Listen)
	assert.True(t, s.Multicast)
	assert.Equal(t, []net.HardwareAddr{{0x01, 0x00, 0x5e, 0x00, 0x00, 0x42}}, s.MulticastGroups)
	require.NotNil(t, s.Channel.Capture)
	assert.Equal(t, "/tmp/ethmcast.pcapng", s.Channel.Capture.Filename)
}

func TestReadYAMLErrors(t *testing.T) {
	var conf config.Config
	assert.Error(t, config.ReadYAML(filepath.Join(t.TempDir(), "missing.yml"), &conf))

	file := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(file, []byte("listen: [\n"), 0o644))
	assert.Error(t, config.ReadYAML(file, &conf))
}
