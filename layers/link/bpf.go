package link

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"golang.org/x/net/bpf"
)

// DestinationFilter assembles a classic BPF program accepting only
// frames whose destination MAC address is one of addrs. Each address
// takes four instructions: compare the first four bytes, then the
// last two.
func DestinationFilter(addrs []net.HardwareAddr) ([]bpf.RawInstruction, error) {
	if len(addrs) == 0 {
		return nil, errors.New("destination filter needs at least one address")
	}
	// jump offsets are 8 bits wide
	if 4*len(addrs) > 0xff {
		return nil, fmt.Errorf("too many addresses for destination filter: %d", len(addrs))
	}

	n := len(addrs)
	insns := make([]bpf.Instruction, 0, 4*n+2)
	for i, addr := range addrs {
		if len(addr) != addrLength {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, addr)
		}
		insns = append(insns,
			bpf.LoadAbsolute{Off: 0, Size: 4},
			bpf.JumpIf{
				Cond:     bpf.JumpNotEqual,
				Val:      binary.BigEndian.Uint32(addr[0:4]),
				SkipTrue: 2, // next address
			},
			bpf.LoadAbsolute{Off: 4, Size: 2},
			bpf.JumpIf{
				Cond:     bpf.JumpEqual,
				Val:      uint32(binary.BigEndian.Uint16(addr[4:6])),
				SkipTrue: uint8(4*(n-i) - 3), // accept
			},
		)
	}
	insns = append(insns,
		bpf.RetConstant{Val: 0},
		bpf.RetConstant{Val: MaxFrameLength},
	)

	prog, err := bpf.Assemble(insns)
	if err != nil {
		return nil, fmt.Errorf("error assembling destination filter: %w", err)
	}
	return prog, nil
}
