package link

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
)

// Frame is an Ethernet II frame as handed to/received from a packet
// socket, i.e. without preamble, padding guarantees or FCS.
type Frame struct {
	Destination net.HardwareAddr
	Source      net.HardwareAddr
	EtherType   uint16
	Payload     []byte
}

// Encode serializes the 14-byte Ethernet header followed by payload.
//
// Short frames are not padded to the 60-byte Ethernet minimum, the
// kernel (or the NIC) does that on transmit.
func Encode(dst, src net.HardwareAddr, etherType uint16, payload []byte) ([]byte, error) {
	if len(dst) != addrLength {
		return nil, fmt.Errorf("%w: destination %v", ErrInvalidAddress, dst)
	}
	if len(src) != addrLength {
		return nil, fmt.Errorf("%w: source %v", ErrInvalidAddress, src)
	}
	if n := HeaderLength + len(payload); n > MaxFrameLength {
		return nil, fmt.Errorf("%w: %d bytes, max is %d", ErrPayloadTooLarge, n, MaxFrameLength)
	}

	frame := &gplayers.Ethernet{
		DstMAC:       dst,
		SrcMAC:       src,
		EthernetType: gplayers.EthernetType(etherType),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	if err := gopacket.SerializeLayers(buf, opts, frame, gopacket.Payload(payload)); err != nil {
		return nil, fmt.Errorf("error serializing ethernet layer: %w", err)
	}

	// gopacket pads up to 60 bytes, drop it
	b := buf.Bytes()[:HeaderLength+len(payload)]
	return b, nil
}

// MarshalBinary is Encode() for a Frame value.
func (f *Frame) MarshalBinary() ([]byte, error) {
	return Encode(f.Destination, f.Source, f.EtherType, f.Payload)
}

// Decode parses the Ethernet header of b. The returned frame references
// b, callers that reuse b must copy what they want to keep.
//
// The ethertype is not validated: values below MinEtherType are
// passed through untouched, and so is the payload.
func Decode(b []byte) (*Frame, error) {
	if len(b) < HeaderLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(b))
	}

	var eth gplayers.Ethernet
	if err := eth.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("error deserializing link layer: %w", err)
	}

	// gopacket turns values below 0x0600 into an 802.3 length and trims
	// the payload with it, so read both straight from the buffer
	return &Frame{
		Destination: eth.DstMAC,
		Source:      eth.SrcMAC,
		EtherType:   binary.BigEndian.Uint16(b[12:HeaderLength]),
		Payload:     b[HeaderLength:],
	}, nil
}

// String formats f for logs: addresses, ethertype and payload size.
func (f *Frame) String() string {
	return fmt.Sprintf("%s -> %s %s (%d bytes)",
		f.Source, f.Destination, EtherTypeString(f.EtherType), len(f.Payload))
}

// EtherTypeString formats an ethertype as 0xnnnn, followed by the
// protocol name when gopacket knows it.
func EtherTypeString(etherType uint16) string {
	s := fmt.Sprintf("0x%04x", etherType)
	name := gplayers.EthernetType(etherType).String()
	if name == "" || strings.HasPrefix(name, "Unknown") {
		return s
	}
	return fmt.Sprintf("%s (%s)", s, name)
}
