// Package jsonrpc implements the session-oriented JSON-RPC transport the CCU
// exposes at /api/homematic.cgi, used for metadata the XML-RPC interfaces
// don't carry: rooms, functions, system variables and programs. Its shape
// mirrors the teacher's ReGaHss tclrega.exe script client in
// package script (Client.Execute / ExecuteTempl), retargeted at a JSON
// envelope and a login session instead of a bare script POST.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mdzio/go-hmcentral/errs"
	"github.com/mdzio/go-hmcentral/support"
	"github.com/mdzio/go-logging"
)

var log = logging.Get("jsonrpc-client")

// max. size of a valid response, if not specified: 10 MB
const defaultResponseLimit = 10 * 1024 * 1024

// renewThrottle is the minimum interval between Session.renew calls; within
// this window a held session id is reused as-is.
const renewThrottle = 90 * time.Second

// Client talks to a CCU's JSON-RPC endpoint. It keeps one session alive
// across calls, renewing or re-logging in as needed. A Client is safe for
// concurrent use.
type Client struct {
	// Addr is the base URL of the backend, e.g. https://192.168.0.10 or
	// http://192.168.0.10.
	Addr string
	// Username/Password are the CCU credentials used for Session.login.
	Username string
	Password string
	// TLS enables HTTPS. VerifyTLS additionally validates the server
	// certificate; CCUs commonly present a self-signed certificate.
	TLS       bool
	VerifyTLS bool
	// ResponseLimit caps the size of a single response. 0 selects the
	// default of 10 MB.
	ResponseLimit int64

	httpClient *http.Client
	once       sync.Once

	mu           sync.Mutex
	sessionID    string
	lastRenewal  time.Time
}

func (c *Client) client() *http.Client {
	c.once.Do(func() {
		transport := &http.Transport{}
		if c.TLS {
			transport.TLSClientConfig = support.TLSConfig(c.VerifyTLS)
		}
		c.httpClient = &http.Client{Transport: transport, Timeout: 30 * time.Second}
	})
	return c.httpClient
}

func (c *Client) url() string {
	scheme := "http"
	if c.TLS {
		scheme = "https"
	}
	addr := c.Addr
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	return fmt.Sprintf("%s://%s/api/homematic.cgi", scheme, addr)
}

// rawResponse is the outer JSON-RPC 1.1 envelope.
type rawResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rawError       `json:"error"`
	ID     int             `json:"id"`
}

type rawError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rawPost executes a single JSON-RPC request and returns the decoded
// envelope. It does not manage the session; callers attach _session_id_
// themselves.
func (c *Client) rawPost(method string, params map[string]interface{}) (*rawResponse, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"method":  method,
		"params":  params,
		"jsonrpc": "1.1",
		"id":      0,
	})
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, err, "encoding JSON-RPC request failed")
	}

	req, err := http.NewRequest(http.MethodPost, c.url(), bytes.NewReader(payload))
	if err != nil {
		return nil, errs.Wrap(errs.ConfigError, err, "building JSON-RPC request failed")
	}
	req.Header = support.JSONRequestHeaders(len(payload))

	if log.TraceEnabled() {
		log.Tracef("POST %s: %s", c.url(), payload)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		c.clearSession()
		return nil, mapTransportError(err, c.TLS)
	}
	defer resp.Body.Close()

	limit := c.ResponseLimit
	if limit == 0 {
		limit = defaultResponseLimit
	}
	body, err := ioutil.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		c.clearSession()
		return nil, errs.Wrap(errs.ClientError, err, "reading JSON-RPC response failed")
	}

	raw := &rawResponse{}
	if err := json.Unmarshal(body, raw); err != nil {
		// workaround: the backend occasionally double-escapes its own JSON
		stripped := strings.ReplaceAll(string(body), `\`, "")
		if err2 := json.Unmarshal([]byte(stripped), raw); err2 != nil {
			c.clearSession()
			return nil, errs.Wrapf(errs.ClientError, err, "decoding JSON-RPC response failed (method %s)", method)
		}
	}

	if raw.Error != nil {
		msg := raw.Error.Message
		if strings.HasPrefix(msg, "access denied") {
			c.clearSession()
			return nil, errs.Newf(errs.AuthFailure, "JSON-RPC method %s failed: %s", method, msg)
		}
		return nil, errs.Newf(errs.ClientError, "JSON-RPC method %s failed: %s", method, msg)
	}
	return raw, nil
}

// mapTransportError classifies a network-level failure, adding the
// TLS-vs-plain-HTTP hint when a certificate error is observed on a
// non-TLS-configured client.
func mapTransportError(err error, tlsConfigured bool) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "certificate") {
		hint := ""
		if !tlsConfigured {
			hint = ". Possible reason: automatic forwarding to HTTPS is enabled on the backend, " +
				"but this client is not configured to use TLS"
		}
		return errs.Wrapf(errs.ClientError, err, "TLS certificate error%s", hint)
	}
	return errs.Wrap(errs.ClientError, err, "JSON-RPC request failed")
}

func (c *Client) clearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = ""
}

// loginOrRenew ensures a usable session id is held, logging in if none
// exists or renewing if the held one is older than renewThrottle.
func (c *Client) loginOrRenew() (string, error) {
	c.mu.Lock()
	sid := c.sessionID
	fresh := !c.lastRenewal.IsZero() && time.Since(c.lastRenewal) < renewThrottle
	c.mu.Unlock()

	if sid == "" {
		return c.doLogin()
	}
	if fresh {
		return sid, nil
	}
	return c.doRenew(sid)
}

func (c *Client) doLogin() (string, error) {
	if c.Username == "" {
		return "", errs.New(errs.ConfigError, "no credentials set")
	}
	raw, err := c.rawPost("Session.login", map[string]interface{}{
		"username": c.Username,
		"password": c.Password,
	})
	if err != nil {
		return "", err
	}
	var sid string
	if err := json.Unmarshal(raw.Result, &sid); err != nil || sid == "" {
		return "", errs.New(errs.AuthFailure, "login did not return a session id")
	}
	c.mu.Lock()
	c.sessionID = sid
	c.lastRenewal = time.Now()
	c.mu.Unlock()
	log.Debugf("logged in to %s", c.Addr)
	return sid, nil
}

func (c *Client) doRenew(sid string) (string, error) {
	raw, err := c.rawPost("Session.renew", map[string]interface{}{"_session_id_": sid})
	if err != nil {
		return c.doLogin()
	}
	var ok bool
	if err := json.Unmarshal(raw.Result, &ok); err != nil || !ok {
		return c.doLogin()
	}
	c.mu.Lock()
	c.lastRenewal = time.Now()
	c.mu.Unlock()
	return sid, nil
}

// Login establishes a session explicitly. Post and PostScript call this
// implicitly on first use, so most callers don't need it.
func (c *Client) Login() error {
	_, err := c.doLogin()
	return err
}

// Renew refreshes the held session if it is older than 90 s, re-logging in
// if the backend rejects the renewal.
func (c *Client) Renew() error {
	_, err := c.loginOrRenew()
	return err
}

// Logout terminates the held session, if any.
func (c *Client) Logout() error {
	c.mu.Lock()
	sid := c.sessionID
	c.mu.Unlock()
	if sid == "" {
		return nil
	}
	defer c.clearSession()
	_, err := c.rawPost("Session.logout", map[string]interface{}{"_session_id_": sid})
	return err
}

// Post invokes a JSON-RPC method with a session attached, logging in or
// renewing first as needed. The result is the raw JSON payload of the
// "result" field.
func (c *Client) Post(method string, params map[string]interface{}) (json.RawMessage, error) {
	sid, err := c.loginOrRenew()
	if err != nil {
		return nil, err
	}
	full := map[string]interface{}{"_session_id_": sid}
	for k, v := range params {
		full[k] = v
	}
	raw, err := c.rawPost(method, full)
	if err != nil {
		return nil, err
	}
	return raw.Result, nil
}

// PostScript substitutes ##name## placeholders in the named bundled script
// with the stringified params, executes it via ReGa.runScript, and
// double-decodes the JSON-encoded result string the backend wraps its
// script output in.
func (c *Client) PostScript(scriptName string, params map[string]interface{}) (json.RawMessage, error) {
	script, ok := bundledScripts[scriptName]
	if !ok {
		return nil, errs.Newf(errs.ConfigError, "script %s is not bundled", scriptName)
	}
	for name, value := range params {
		script = strings.ReplaceAll(script, "##"+name+"##", fmt.Sprintf("%v", value))
	}

	sid, err := c.loginOrRenew()
	if err != nil {
		return nil, err
	}
	raw, err := c.rawPost("ReGa.runScript", map[string]interface{}{
		"_session_id_": sid,
		"script":       script,
	})
	if err != nil {
		return nil, err
	}

	var encoded string
	if err := json.Unmarshal(raw.Result, &encoded); err != nil {
		// some scripts return a result that is already a plain JSON value,
		// not a JSON-encoded string; pass it through unchanged
		return raw.Result, nil
	}
	var decoded json.RawMessage
	if err := json.Unmarshal([]byte(encoded), &decoded); err != nil {
		return nil, errs.Wrapf(errs.ClientError, err, "decoding script result of %s failed", scriptName)
	}
	return decoded, nil
}
