//go:build !linux

package link

func openChannel(conf ChannelConfig) (Channel, error) {
	return nil, ErrNotSupported
}
