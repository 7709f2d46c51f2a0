package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagsOverrideYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "ethmcast.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
interface: enp0s3
etherType: "0x88b5"
destination: 08:00:27:00:56:ca
listen: true
`), 0o644))

	rootFlags = flags{}
	require.NoError(t, rootCmd.ParseFlags([]string{
		"--config", file,
		"-i", "enp0s8",
		"-m",
		"--capture", "out.pcapng",
		"bye",
	}))
	conf, err := loadConfig(rootCmd, rootCmd.Flags().Args())
	require.NoError(t, err)

	assert.Equal(t, "enp0s8", conf.Interface)
	assert.Equal(t, "0x88b5", conf.EtherType)
	assert.Equal(t, "08:00:27:00:56:ca", conf.Destination)
	assert.True(t, conf.Listen)
	assert.True(t, conf.Multicast)
	assert.Equal(t, "bye", conf.Message)
	require.NotNil(t, conf.Capture)
	assert.Equal(t, "out.pcapng", conf.Capture.Filename)

	s, err := conf.Session()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x88b5), s.Channel.EtherType)
	assert.Len(t, s.MulticastGroups, 2)
}

func TestMulticastGroupsText(t *testing.T) {
	assert.Equal(t, "01:00:5e:00:00:10 and 01:00:5e:00:00:20", multicastGroupsText())
}
