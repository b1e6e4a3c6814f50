package xmlrpc

import (
	"net"
	"strings"
	"time"

	"github.com/mdzio/go-hmcentral/errs"
	"github.com/mdzio/go-logging"
)

var pxyLog = logging.Get("xmlrpc-proxy")

// issueChecker is the subset of connstate.State a Proxy needs. Declared here
// (rather than importing connstate directly) to keep xmlrpc free of a
// dependency on the orchestration layer; central wires the concrete type in.
type issueChecker interface {
	HasAnyIssue(issuer string) bool
}

// alwaysUp never reports an issue; used when no ConnectionState is wired.
type alwaysUp struct{}

func (alwaysUp) HasAnyIssue(string) bool { return false }

// methods always allowed to bypass the ConnectionState short-circuit.
var bypassMethods = map[string]bool{
	"init":               true,
	"ping":               true,
	"getVersion":         true,
	"system.listMethods": true,
}

// Proxy fronts a Caller with a bounded worker pool and ConnectionState
// consultation, and implements Caller itself so it drops transparently into
// an itf.Client. Where the teacher's RetryingCaller (itf/xmlrpc/rcaller.go)
// wraps a Caller to retry-with-sleep, Proxy wraps one to bound concurrency
// and gate calls on connection health. Enum scalarization and recursive map
// cleanup (the rest of the argument-cleanup contract) already happen at
// value-construction time in NewValue/NewMap, so Proxy only needs to police
// the top-level argument count.
type Proxy struct {
	// InterfaceID identifies this proxy to ConnectionState and in log lines.
	InterfaceID string
	// Caller performs the actual remote call.
	Caller Caller
	// MaxWorkers bounds the number of calls in flight concurrently. 0 means
	// unbounded.
	MaxWorkers int
	// State is consulted before any call other than the bypass set. Nil
	// means never blocked.
	State issueChecker

	sem chan struct{}
}

func (p *Proxy) workers() chan struct{} {
	if p.sem == nil && p.MaxWorkers > 0 {
		p.sem = make(chan struct{}, p.MaxWorkers)
	}
	return p.sem
}

// Call implements Caller.
func (p *Proxy) Call(method string, params []*Value) (Values, error) {
	if len(params) > 2 {
		return nil, errs.Newf(errs.ConfigError, "too many arguments for %s: %d", method, len(params))
	}

	state := p.State
	if state == nil {
		state = alwaysUp{}
	}
	if !bypassMethods[method] && state.HasAnyIssue(p.InterfaceID) {
		return nil, errs.Newf(errs.NoConnection, "interface %s has an outstanding connection issue", p.InterfaceID)
	}

	if sem := p.workers(); sem != nil {
		sem <- struct{}{}
		defer func() { <-sem }()
	}

	pxyLog.Debugf("%s: calling %s, %s", p.InterfaceID, method, Values(params))
	res, err := p.Caller.Call(method, params)
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

// mapError translates a transport-level error into the tagged error
// hierarchy per the mapping table: connection-refused-like network errors
// become NoConnection, an HTTP 401 becomes AuthFailure, an XML-RPC fault
// becomes ClientError.
func mapError(err error) error {
	if methodErr, ok := err.(*MethodError); ok {
		return errs.Wrapf(errs.ClientError, err, "fault %d: %s", methodErr.Code, methodErr.Message)
	}
	if netErr, ok := err.(net.Error); ok {
		return errs.Wrap(errs.NoConnection, netErr, "network error")
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no route to host"),
		strings.Contains(lower, "network is unreachable"),
		strings.Contains(lower, "i/o timeout"),
		strings.Contains(lower, "timeout"):
		return errs.Wrap(errs.NoConnection, err, "network error")
	case strings.Contains(lower, "401"), strings.Contains(lower, "unauthorized"):
		return errs.Wrap(errs.AuthFailure, err, "backend rejected credentials")
	default:
		return errs.Wrap(errs.ClientError, err, "call failed")
	}
}

// pingInterval is the default spacing between liveness pings, matching the
// teacher's RegisteredClient re-registration cadence.
const pingInterval = 5 * time.Second
