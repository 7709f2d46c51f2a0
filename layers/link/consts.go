package link

import (
	"net"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
)

const (
	// HeaderLength is the Ethernet header length: destination and
	// source MAC addresses followed by the 16-bit ethertype.
	HeaderLength = 14

	// MaxFrameLength is the maximum number of bytes of a frame handed
	// to or received from a packet socket (ETH_FRAME_LEN, no FCS).
	MaxFrameLength = 1514

	// MTU (maximum transmission unit) is the maximum number of bytes that are
	// allowed on the payload of a frame.
	MTU = MaxFrameLength - HeaderLength

	// MinEtherType is the smallest value interpreted as an ethertype.
	// Smaller values encode the frame length (IEEE 802.3).
	MinEtherType = 0x0600

	// DefaultEtherType is a locally chosen ethertype with no registered
	// protocol behind it.
	DefaultEtherType uint16 = 0x80ab

	addrLength = 6

	promNamespace = "link_layer"
)

// BroadcastMACAddress is the MAC address used for broadcast in a local network.
func BroadcastMACAddress() net.HardwareAddr {
	return net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
}

// BroadcastMACEndpoint is the MAC address used for broadcast in a local network.
func BroadcastMACEndpoint() gopacket.Endpoint {
	return gplayers.NewMACEndpoint(BroadcastMACAddress())
}

// DefaultMulticastGroups returns the two group addresses a listener
// subscribes to when running in multicast mode.
func DefaultMulticastGroups() []net.HardwareAddr {
	return []net.HardwareAddr{
		{0x01, 0x00, 0x5e, 0x00, 0x00, 0x10},
		{0x01, 0x00, 0x5e, 0x00, 0x00, 0x20},
	}
}
