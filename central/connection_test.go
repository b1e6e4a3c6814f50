package central

import (
	"errors"
	"testing"
	"time"

	"github.com/mdzio/go-hmcentral/xmlrpc"
)

type fakeCaller struct {
	calls   []string
	ret     xmlrpc.Values
	err     error
}

func (f *fakeCaller) Call(method string, params []*xmlrpc.Value) (xmlrpc.Values, error) {
	f.calls = append(f.calls, method)
	return f.ret, f.err
}

func newTestClient(fc *fakeCaller) *interfaceClient {
	proxy := &xmlrpc.Proxy{InterfaceID: "BidCos-RF", Caller: fc}
	return newInterfaceClient("BidCos-RF", proxy)
}

func TestDeinitOnUninitializedClientIsSkipped(t *testing.T) {
	fc := &fakeCaller{}
	ic := newTestClient(fc)
	result, err := ic.deinit()
	if result != deinitSkipped || err != nil {
		t.Fatalf("expected deinitSkipped/nil, got %v/%v", result, err)
	}
	if len(fc.calls) != 0 {
		t.Fatalf("expected no backend call, got %v", fc.calls)
	}
}

func TestReinitShortCircuitsOnDeinitFailure(t *testing.T) {
	fc := &fakeCaller{err: errors.New("dial tcp: connection refused")}
	ic := newTestClient(fc)
	ic.initialized = true

	result, err := ic.reinit("http://localhost:2010/RPC2")
	if result != deinitFailed || err == nil {
		t.Fatalf("expected deinitFailed with an error, got %v/%v", result, err)
	}
	if len(fc.calls) != 1 {
		t.Fatalf("expected init to be skipped after deinit failure, got calls %v", fc.calls)
	}
}

func TestReinitCallsInitAfterSuccessfulDeinit(t *testing.T) {
	fc := &fakeCaller{ret: xmlrpc.Values{}}
	ic := newTestClient(fc)
	ic.initialized = true

	result, err := ic.reinit("http://localhost:2010/RPC2")
	if result != deinitOK || err != nil {
		t.Fatalf("expected deinitOK/nil, got %v/%v", result, err)
	}
	if len(fc.calls) != 2 {
		t.Fatalf("expected deinit then init, got calls %v", fc.calls)
	}
	if !ic.initialized {
		t.Fatal("expected client to be marked initialized again")
	}
}

func TestPingCallerIDRoundTrips(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	callerID := pingCallerID("BidCos-RF", ts)

	interfaceID, parsedTS, ok := parsePong(callerID)
	if !ok {
		t.Fatalf("expected parsePong to succeed for %q", callerID)
	}
	if interfaceID != "BidCos-RF" {
		t.Fatalf("expected interfaceID BidCos-RF, got %q", interfaceID)
	}
	if !parsedTS.Equal(ts) {
		t.Fatalf("expected timestamp %v, got %v", ts, parsedTS)
	}
}

func TestParsePongRejectsMalformedValues(t *testing.T) {
	for _, v := range []string{"", "no-hash-here", "BidCos-RF#notanumber"} {
		if _, _, ok := parsePong(v); ok {
			t.Fatalf("expected parsePong(%q) to fail", v)
		}
	}
}

func TestCheckConnectionAvailabilityRecordsPingOnSuccess(t *testing.T) {
	fc := &fakeCaller{ret: xmlrpc.Values{xmlrpc.NewBool(true)}}
	ic := newTestClient(fc)

	if !ic.checkConnectionAvailability() {
		t.Fatal("expected availability check to succeed")
	}
	if ic.consecutiveFailures != 0 {
		t.Fatalf("expected failures to reset to 0, got %d", ic.consecutiveFailures)
	}
	if ic.pingPong.PendingCount() != 1 {
		t.Fatalf("expected one pending ping recorded, got %d", ic.pingPong.PendingCount())
	}
}

func TestCheckConnectionAvailabilityCountsFailures(t *testing.T) {
	fc := &fakeCaller{err: errors.New("dial tcp: connection refused")}
	ic := newTestClient(fc)

	for i := 1; i <= 3; i++ {
		if ic.checkConnectionAvailability() {
			t.Fatal("expected availability check to fail")
		}
		if ic.consecutiveFailures != i {
			t.Fatalf("expected %d consecutive failures, got %d", i, ic.consecutiveFailures)
		}
	}
}

func TestIsConnectedRequiresRecentSuccess(t *testing.T) {
	ic := newTestClient(&fakeCaller{})
	now := time.Now()
	ic.lastCheckOK = true
	ic.lastUpdated = now.Add(-1 * time.Minute)
	if !ic.isConnected(now, 2*time.Minute) {
		t.Fatal("expected recent success within warnInterval to count as connected")
	}
	if ic.isConnected(now, 30*time.Second) {
		t.Fatal("expected stale success beyond warnInterval to count as disconnected")
	}
}

func TestIsCallbackAliveFallsBackToLastUpdated(t *testing.T) {
	ic := newTestClient(&fakeCaller{})
	now := time.Now()
	ic.lastUpdated = now.Add(-1 * time.Minute)
	if !ic.isCallbackAlive(now, 2*time.Minute) {
		t.Fatal("expected lastUpdated to stand in when no event has ever been recorded")
	}
	ic.recordEvent(now.Add(-5 * time.Minute))
	if ic.isCallbackAlive(now, 2*time.Minute) {
		t.Fatal("expected a stale recorded event to make the callback appear dead")
	}
}
