package vless

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgevless/internal/buf"
)

var testUUID = [16]byte{
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
}

func header(uuid [16]byte, pbLen byte, cmd byte, port uint16, atype byte, addr []byte, extra []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(0x00) // version
	buf.Write(uuid[:])
	buf.WriteByte(pbLen)
	buf.WriteByte(cmd)
	buf.WriteByte(byte(port >> 8))
	buf.WriteByte(byte(port))
	buf.WriteByte(atype)
	buf.Write(addr)
	buf.Write(extra)
	return buf.Bytes()
}

func TestParseHeaderIPv4(t *testing.T) {
	raw := header(testUUID, 0, CommandTCP, 443, AddrIPv4, []byte{1, 2, 3, 4}, []byte("HELLO"))
	req, err := ParseHeader(bytes.NewReader(raw), testUUID)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", req.Hostname)
	assert.Equal(t, uint16(443), req.Port)
	assert.Equal(t, "HELLO", string(req.Data))
	assert.Equal(t, []byte{0x00, 0x00}, req.Resp)
}

func TestParseHeaderDomain(t *testing.T) {
	domain := []byte("localhost")
	addr := append([]byte{byte(len(domain))}, domain...)
	raw := header(testUUID, 0, CommandTCP, 80, AddrDomain, addr, []byte{0x41, 0x42})
	req, err := ParseHeader(bytes.NewReader(raw), testUUID)
	require.NoError(t, err)
	assert.Equal(t, "localhost", req.Hostname)
	assert.Equal(t, uint16(80), req.Port)
	assert.Equal(t, []byte{0x41, 0x42}, req.Data)
}

func TestParseHeaderIPv6(t *testing.T) {
	addr := []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01}
	raw := header(testUUID, 0, CommandTCP, 443, AddrIPv6, addr, nil)
	req, err := ParseHeader(bytes.NewReader(raw), testUUID)
	require.NoError(t, err)
	assert.Equal(t, "2001:db8:0:0:0:0:0:1", req.Hostname)
	assert.Equal(t, uint16(443), req.Port)
	assert.Equal(t, "", string(req.Data))
}

func TestParseHeaderWrongUUID(t *testing.T) {
	var other [16]byte
	copy(other[:], testUUID[:])
	other[0] ^= 0xff

	raw := header(other, 0, CommandTCP, 443, AddrIPv4, []byte{1, 2, 3, 4}, nil)
	_, err := ParseHeader(bytes.NewReader(raw), testUUID)
	assert.ErrorIs(t, err, ErrInvalidUUID)
}

func TestParseHeaderUnsupportedCommand(t *testing.T) {
	raw := header(testUUID, 0, 0x02, 443, AddrIPv4, []byte{1, 2, 3, 4}, nil)
	_, err := ParseHeader(bytes.NewReader(raw), testUUID)
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
}

func TestParseHeaderUnknownAddressType(t *testing.T) {
	raw := header(testUUID, 0, CommandTCP, 443, 0x09, []byte{1, 2, 3, 4}, nil)
	_, err := ParseHeader(bytes.NewReader(raw), testUUID)
	assert.ErrorIs(t, err, ErrUnknownAddressType)
}

func TestParseHeaderEmptyDomain(t *testing.T) {
	raw := header(testUUID, 0, CommandTCP, 443, AddrDomain, []byte{0x00}, nil)
	_, err := ParseHeader(bytes.NewReader(raw), testUUID)
	assert.ErrorIs(t, err, ErrEmptyHostname)
}

func TestParseHeaderTruncatedFailsShortRead(t *testing.T) {
	raw := header(testUUID, 0, CommandTCP, 443, AddrIPv4, []byte{1, 2, 3, 4}, []byte("tail"))
	for k := 1; k < len(raw)-len("tail"); k++ {
		_, err := ParseHeader(bytes.NewReader(raw[:k]), testUUID)
		assert.ErrorIs(t, err, buf.ErrShortRead, "truncation at offset %d should fail", k)
	}
}

func TestParseHeaderWithAddons(t *testing.T) {
	raw := header(testUUID, 3, CommandTCP, 443, AddrIPv4, []byte{1, 2, 3, 4}, []byte("X"))
	// insert 3 addon bytes right after pb_len, before cmd
	full := bytes.NewBuffer(append([]byte(nil), raw[:18]...))
	full.Write([]byte{0xAA, 0xBB, 0xCC})
	full.Write(raw[18:])

	req, err := ParseHeader(bytes.NewReader(full.Bytes()), testUUID)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", req.Hostname)
	assert.Equal(t, "X", string(req.Data))
}
