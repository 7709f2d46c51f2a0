package link

import "net"

func NewCapturingChannel(c Channel, conf CaptureConfig) (Channel, error) {
	return newCapturingChannel(c, conf)
}

func NewBinding(ifi *net.Interface) (Binding, error) {
	return newBinding(ifi)
}
