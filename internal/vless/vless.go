// Package vless implements the VLESS request header codec: parsing the
// binary, length-prefixed handshake frame and authenticating it against
// a configured UUID.
package vless

import (
	"crypto/subtle"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"

	"edgevless/internal/buf"
)

// Command values. Only TCP is supported; anything else is rejected.
const (
	CommandTCP byte = 0x01
)

// Address types.
const (
	AddrIPv4   byte = 0x01
	AddrDomain byte = 0x02
	AddrIPv6   byte = 0x03
)

var (
	ErrInvalidUUID        = errors.New("invalid_uuid")
	ErrUnsupportedCommand = errors.New("unsupported_command")
	ErrUnknownAddressType = errors.New("unknown_address_type")
	ErrEmptyHostname      = errors.New("empty_hostname")
)

// Request is the decoded VLESS handshake: the destination, the first
// client-to-server payload bytes already buffered past the header, and
// the two-byte response prefix to emit before any remote bytes.
type Request struct {
	Hostname string
	Port     uint16
	Data     []byte
	Resp     []byte
}

// ParseHeader reads and authenticates a VLESS request header from r. The
// wire layout is:
//
//	0       version (1)
//	1       uuid (16)
//	17      pb_len (1)
//	18      addons (pb_len, ignored)
//	18+pb   command (1)
//	19+pb   port (2, big-endian)
//	21+pb   address type (1)
//	22+pb   address payload (variable)
//
// uuid must match exactly (constant-time comparison); command must be
// CommandTCP; the address type must be one of AddrIPv4/AddrDomain/AddrIPv6.
func ParseHeader(r io.Reader, uuid [16]byte) (*Request, error) {
	acc := buf.NewAccumulator(r)

	head, err := acc.Fill(18)
	if err != nil {
		return nil, err
	}
	version := head[0]
	if subtle.ConstantTimeCompare(head[1:17], uuid[:]) != 1 {
		return nil, ErrInvalidUUID
	}
	pbLen := int(head[17])

	head, err = acc.Fill(22 + pbLen)
	if err != nil {
		return nil, err
	}
	cmd := head[18+pbLen]
	port := uint16(head[19+pbLen])<<8 | uint16(head[20+pbLen])
	atype := head[21+pbLen]

	var headerLen int
	switch atype {
	case AddrIPv4:
		headerLen = 22 + pbLen + 4
	case AddrIPv6:
		headerLen = 22 + pbLen + 16
	case AddrDomain:
		head, err = acc.Fill(23 + pbLen)
		if err != nil {
			return nil, err
		}
		domainLen := int(head[22+pbLen])
		headerLen = 23 + pbLen + domainLen
	default:
		return nil, ErrUnknownAddressType
	}

	head, err = acc.Fill(headerLen)
	if err != nil {
		return nil, err
	}

	if cmd != CommandTCP {
		return nil, ErrUnsupportedCommand
	}

	hostname, err := renderAddress(atype, head[22+pbLen:headerLen])
	if err != nil {
		return nil, err
	}
	if hostname == "" {
		return nil, ErrEmptyHostname
	}

	return &Request{
		Hostname: hostname,
		Port:     port,
		Data:     head[headerLen:],
		Resp:     []byte{version, 0x00},
	}, nil
}

func renderAddress(atype byte, payload []byte) (string, error) {
	switch atype {
	case AddrIPv4:
		return net.IP(payload).String(), nil
	case AddrIPv6:
		return renderIPv6(payload), nil
	case AddrDomain:
		// payload still starts with the one-byte length prefix that was
		// used to compute headerLen; skip it.
		return string(payload[1:]), nil
	default:
		return "", ErrUnknownAddressType
	}
}

// renderIPv6 renders 16 bytes as 8 colon-separated big-endian hex groups
// with leading zeros dropped per group and no "::" compression — not
// the canonical RFC 5952 form, but the one VLESS clients expect.
func renderIPv6(b []byte) string {
	groups := make([]string, 8)
	for i := 0; i < 8; i++ {
		v := uint16(b[i*2])<<8 | uint16(b[i*2+1])
		groups[i] = strconv.FormatUint(uint64(v), 16)
	}
	return strings.Join(groups, ":")
}
