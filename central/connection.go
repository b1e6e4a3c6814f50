package central

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mdzio/go-hmcentral/connstate"
	"github.com/mdzio/go-hmcentral/errs"
	"github.com/mdzio/go-hmcentral/itf"
	"github.com/mdzio/go-hmcentral/xmlrpc"

	"github.com/mdzio/go-lib/conc"
)

// deinitResult is the outcome of a proxy_de_init call, distinguishing "the
// backend confirmed de-init", "there was nothing to de-init" and "de-init
// itself failed", per spec.md §8's boundary-behavior requirement.
type deinitResult int

const (
	deinitOK deinitResult = iota
	deinitSkipped
	deinitFailed
)

// interfaceClient bundles one configured interface's XML-RPC client with
// the bookkeeping ConnectionChecker needs to judge is_connected/
// is_callback_alive, grounded on the teacher's RegisteredClient
// (itf/regclient.go), split here into the data ConnectionChecker consults
// versus the ping/timeout loop RegisteredClient ran by itself.
type interfaceClient struct {
	interfaceID string
	client      *itf.Client
	proxy       *xmlrpc.Proxy
	pingPong    *connstate.PingPongCache

	initialized         bool
	lastCheckOK         bool
	lastUpdated         time.Time
	lastEventTime       time.Time
	consecutiveFailures int
	forcedUnavailable   bool
}

func newInterfaceClient(interfaceID string, proxy *xmlrpc.Proxy) *interfaceClient {
	return &interfaceClient{
		interfaceID: interfaceID,
		client:      &itf.Client{Name: interfaceID, Caller: proxy},
		proxy:       proxy,
		pingPong:    connstate.NewPingPongCache(),
	}
}

// init calls proxy_init. If the proxy was already initialized, the call is
// made unconditionally; callers that need the de-init-first contract use
// reinit instead.
func (ic *interfaceClient) init(callbackURL string) error {
	if err := ic.client.Init(callbackURL, ic.interfaceID); err != nil {
		return err
	}
	ic.initialized = true
	ic.lastUpdated = time.Now()
	return nil
}

// deinit calls proxy_de_init. Per spec.md §8, a proxy never initialized
// returns deinitSkipped without contacting the backend.
func (ic *interfaceClient) deinit() (deinitResult, error) {
	if !ic.initialized {
		return deinitSkipped, nil
	}
	err := ic.client.Deinit("")
	if err != nil {
		return deinitFailed, err
	}
	ic.initialized = false
	return deinitOK, nil
}

// reinit de-inits then re-inits. If de-init fails, reinit returns
// deinitFailed without attempting init: the caller is expected to retry
// the whole reconnect later rather than force an init on top of a backend
// that just rejected de-init.
func (ic *interfaceClient) reinit(callbackURL string) (deinitResult, error) {
	result, err := ic.deinit()
	if result == deinitFailed {
		return result, err
	}
	if initErr := ic.init(callbackURL); initErr != nil {
		return result, initErr
	}
	return result, nil
}

// checkConnectionAvailability sends a ping carrying the current timestamp
// as its callerID, per itf.Client.Ping's "<interfaceID>#<ms-ts>" callback
// contract; the round trip itself completes later, asynchronously, when
// the backend's PONG event reaches Central.HandleEvent and is recorded
// against pingPong there.
func (ic *interfaceClient) checkConnectionAvailability() bool {
	now := time.Now()
	callerID := pingCallerID(ic.interfaceID, now)
	ok, err := ic.client.Ping(callerID)
	if err != nil || !ok {
		ic.lastCheckOK = false
		ic.consecutiveFailures++
		return false
	}
	ic.pingPong.HandleSendPing(now)
	ic.lastCheckOK = true
	ic.lastUpdated = now
	ic.consecutiveFailures = 0
	return true
}

func pingCallerID(interfaceID string, ts time.Time) string {
	return fmt.Sprintf("%s#%d", interfaceID, ts.UnixMilli())
}

// parsePong splits a PONG event's value ("<interfaceID>#<ms-ts>") back
// into its interface id and timestamp.
func parsePong(value string) (interfaceID string, ts time.Time, ok bool) {
	i := strings.LastIndexByte(value, '#')
	if i < 0 {
		return "", time.Time{}, false
	}
	ms, err := strconv.ParseInt(value[i+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return value[:i], time.UnixMilli(ms), true
}

// isConnected implements spec.md §4.6's is_connected predicate: the last
// availability check succeeded and it happened recently enough that the
// client isn't just coasting on a stale success.
func (ic *interfaceClient) isConnected(now time.Time, warnInterval time.Duration) bool {
	return ic.lastCheckOK && now.Sub(ic.lastUpdated) < warnInterval
}

// isCallbackAlive implements is_callback_alive: the backend has pushed at
// least one event (or this client has never registered one, in which case
// it's judged against its own init time) within warnInterval.
func (ic *interfaceClient) isCallbackAlive(now time.Time, warnInterval time.Duration) bool {
	last := ic.lastEventTime
	if last.IsZero() {
		last = ic.lastUpdated
	}
	return now.Sub(last) <= warnInterval
}

func (ic *interfaceClient) recordEvent(now time.Time) {
	ic.lastEventTime = now
}

// runConnectionChecker is the daemon loop started by Start, checking every
// client's connection health every ConnectionCheckerInterval and
// reconnecting the ones that have gone stale, per spec.md §4.6.
func (c *Central) runConnectionChecker(ctx conc.Context) {
	ticker := time.NewTicker(c.cfg.connectionCheckerInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkConnections()
		}
	}
}

func (c *Central) checkConnections() {
	c.mtx.RLock()
	if len(c.clients) == 0 {
		c.mtx.RUnlock()
		c.restartClients()
		return
	}
	clients := make([]*interfaceClient, 0, len(c.clients))
	for _, ic := range c.clients {
		clients = append(clients, ic)
	}
	c.mtx.RUnlock()

	now := time.Now()
	warn := c.cfg.callbackWarnInterval()

	var reconnected bool
	for _, ic := range clients {
		available := ic.checkConnectionAvailability()
		connected := available && ic.isConnected(now, warn)
		callbackAlive := ic.isCallbackAlive(now, warn)

		if !callbackAlive {
			c.fireInterfaceEvent(ic.interfaceID, InterfaceEventCallback, map[string]interface{}{"alive": false})
		}

		if drained := ic.pingPong.Drain(now, warn); drained > 0 {
			c.fireInterfaceEvent(ic.interfaceID, InterfaceEventPendingPong, map[string]interface{}{"drained": drained})
		}
		if counters, mismatched := ic.pingPong.CheckMismatch(c.cfg.pingPongMismatchThreshold()); mismatched {
			c.fireInterfaceEvent(ic.interfaceID, InterfaceEventPingpong, map[string]interface{}{"counters": counters})
		}

		if connected && callbackAlive {
			continue
		}

		if ic.consecutiveFailures >= consecutiveFailuresForceUnavailable && !ic.forcedUnavailable {
			ic.forcedUnavailable = true
			c.forceInterfaceUnavailable(ic.interfaceID)
		}

		result, err := ic.reinit(c.callbackURLSnapshot())
		if err != nil {
			cLog.Warningf("%s: reconnect failed for %s (de-init result %d): %v", c.cfg.Name, ic.interfaceID, result, err)
			continue
		}
		if ic.forcedUnavailable {
			c.mtx.RLock()
			for _, d := range c.devices {
				if d.Interface == ic.interfaceID {
					d.SetForcedUnavailable(false)
				}
			}
			c.mtx.RUnlock()
		}
		ic.forcedUnavailable = false
		c.fireInterfaceEvent(ic.interfaceID, InterfaceEventProxy, map[string]interface{}{"available": true})
		reconnected = true
	}

	if reconnected {
		c.refreshAllEntityData()
	}
	c.refreshDeviceDetails()
}

func (c *Central) callbackURLSnapshot() string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.callbackURL
}

// restartClients is spec.md §4.6's fallback when every client has been
// lost: it re-runs the interface-construction half of Start.
func (c *Central) restartClients() {
	available, err := c.availableInterfaces()
	if err != nil {
		cLog.Warningf("%s: restart_clients could not query available interfaces: %v", c.cfg.Name, err)
		available = nil
	}
	c.mtx.Lock()
	for _, icfg := range c.cfg.InterfaceConfigs {
		if available != nil {
			if _, ok := available[icfg.Interface]; !ok {
				continue
			}
		}
		if _, exists := c.clients[icfg.Interface]; exists {
			continue
		}
		client := c.newInterfaceClient(icfg)
		c.clients[icfg.Interface] = client
		c.registry.Register(icfg.Interface, c)
	}
	c.mtx.Unlock()
}

func (c *Central) forceInterfaceUnavailable(interfaceID string) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	for _, d := range c.devices {
		if d.Interface == interfaceID {
			d.SetForcedUnavailable(true)
		}
	}
}

func (c *Central) refreshAllEntityData() {
	c.mtx.RLock()
	clients := make([]*interfaceClient, 0, len(c.clients))
	for _, ic := range c.clients {
		clients = append(clients, ic)
	}
	c.mtx.RUnlock()

	for _, ic := range clients {
		if err := c.dataCache.Refresh(ic.interfaceID, bulkSourceFor(ic.client)); err != nil {
			cLog.Warningf("%s: bulk value refresh failed for %s: %v", c.cfg.Name, ic.interfaceID, err)
		}
	}
}

// bulkSource adapts itf.Client.ListDevices+GetParamset to
// caches/dynamic.BulkSource.
type bulkSource struct {
	client *itf.Client
}

func bulkSourceFor(client *itf.Client) *bulkSource {
	return &bulkSource{client: client}
}

func (s *bulkSource) Values(interfaceID string) (map[string]map[string]interface{}, error) {
	descrs, err := s.client.ListDevices()
	if err != nil {
		return nil, errs.Wrapf(errs.NoConnection, err, "listDevices failed for %s", interfaceID)
	}
	out := make(map[string]map[string]interface{}, len(descrs))
	for _, d := range descrs {
		values, err := s.client.GetParamset(d.Address, itf.ParamsetValues)
		if err != nil {
			continue
		}
		out[d.Address] = values
	}
	return out, nil
}
