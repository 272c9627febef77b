// Package dialer implements the outbound TCP connect: a timed direct
// attempt with an optional single-attempt fallback to a configured
// relay host.
package dialer

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"time"
)

// ErrAllAttemptsFailed is returned when both the direct connect and the
// relay fallback (if any) fail.
var ErrAllAttemptsFailed = errors.New("all_attempts_failed")

// connectTimeout bounds every individual connect attempt.
const connectTimeout = 8 * time.Second

// ConnectRemote attempts a direct TCP connect to (host, port). On
// failure, if relays is non-empty, it picks one uniformly at random and
// makes a single further attempt to (relay, port). Both attempts race
// against connectTimeout.
func ConnectRemote(ctx context.Context, host string, port uint16, relays []string) (net.Conn, error) {
	if conn, err := timedConnect(ctx, host, port); err == nil {
		return conn, nil
	}
	if len(relays) == 0 {
		return nil, ErrAllAttemptsFailed
	}
	relay := PickRandomProxy(relays)
	if conn, err := timedConnect(ctx, relay, port); err == nil {
		return conn, nil
	}
	return nil, ErrAllAttemptsFailed
}

func timedConnect(ctx context.Context, host string, port uint16) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	var d net.Dialer
	return d.DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
}

// ParseRelays splits a PROXY setting value on spaces, commas, CR, or LF,
// discarding empty fields.
func ParseRelays(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\r' || r == '\n'
	})
}

// PickRandomProxy returns a uniformly random element of relays, or ""
// for an empty list.
func PickRandomProxy(relays []string) string {
	if len(relays) == 0 {
		return ""
	}
	return relays[rand.Intn(len(relays))]
}
