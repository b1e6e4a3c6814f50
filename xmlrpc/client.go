package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"

	"github.com/mdzio/go-logging"
)

var clnLog = logging.Get("xmlrpc-client")

// default maximal size of a response: 10 MB
const defaultResponseSizeLimit = 10 * 1024 * 1024

// Caller executes an XML-RPC call and returns its result(s).
type Caller interface {
	Call(method string, params []*Value) (Values, error)
}

// Client implements a standard XML-RPC client connecting via HTTP.
type Client struct {
	// Addr is the address of the XML-RPC server, e.g.
	// http://192.168.0.10:2001.
	Addr string
	// ResponseSizeLimit limits the size of a response. 0 selects the default
	// limit of 10 MB.
	ResponseSizeLimit int64
}

// Call implements the Caller interface.
func (c *Client) Call(method string, params []*Value) (Values, error) {
	clnLog.Debugf("Calling %s, %s, %s", c.Addr, method, Values(params))

	// build method call
	methodCall := &MethodCall{
		MethodName: method,
		Params: &Params{
			Param: make([]*Param, len(params)),
		},
	}
	for i, p := range params {
		methodCall.Params.Param[i] = &Param{Value: p}
	}

	// encode to XML, ReGaHss and most backends expect ISO-8859-1
	var reqBuf bytes.Buffer
	reqBuf.WriteString(`<?xml version="1.0" encoding="ISO-8859-1"?>` + "\n")
	reqWriter := charmap.ISO8859_1.NewEncoder().Writer(&reqBuf)
	enc := xml.NewEncoder(reqWriter)
	if err := enc.Encode(methodCall); err != nil {
		return nil, fmt.Errorf("encoding of method call failed: %w", err)
	}
	if clnLog.TraceEnabled() {
		clnLog.Tracef("Request XML: %s", reqBuf.String())
	}

	// send request
	resp, err := http.Post(c.Addr, "text/xml", &reqBuf)
	if err != nil {
		return nil, fmt.Errorf("sending of request to %s failed: %w", c.Addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status from %s: %s", c.Addr, resp.Status)
	}

	// read response, size-limited
	limit := c.ResponseSizeLimit
	if limit == 0 {
		limit = defaultResponseSizeLimit
	}
	respBuf, err := ioutil.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("reading of response from %s failed: %w", c.Addr, err)
	}

	// decode response, determine charset from Content-Type or XML prolog
	ctype := resp.Header.Get("Content-Type")
	charReader, err := charset.NewReader(bytes.NewReader(respBuf), ctype)
	if err != nil {
		return nil, fmt.Errorf("determining charset of response from %s failed: %w", c.Addr, err)
	}
	methodResponse := &MethodResponse{}
	if err := xml.NewDecoder(charReader).Decode(methodResponse); err != nil {
		return nil, fmt.Errorf("decoding of response from %s failed: %w", c.Addr, err)
	}

	// check for fault
	if methodResponse.Fault != nil {
		q := Q(methodResponse.Fault)
		code := q.Key("faultCode").Int()
		message := q.Key("faultString").String()
		if q.Err() != nil {
			return nil, fmt.Errorf("invalid fault response from %s: %w", c.Addr, q.Err())
		}
		return nil, &MethodError{Code: code, Message: message}
	}

	// collect values
	if methodResponse.Params == nil {
		return nil, nil
	}
	values := make(Values, len(methodResponse.Params.Param))
	for i, p := range methodResponse.Params.Param {
		values[i] = p.Value
	}
	return values, nil
}
