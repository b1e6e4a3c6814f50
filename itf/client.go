package itf

import (
	"fmt"

	"github.com/mdzio/go-hmcentral/xmlrpc"

	"github.com/mdzio/go-logging"
)

var clnLog = logging.Get("itf-client")

// Client provides the typed device-layer view of a backend's XML-RPC API.
// The underlying Caller is usually an *xmlrpc.Proxy, which adds connection
// gating and a bounded worker pool around the raw transport.
type Client struct {
	Name string
	xmlrpc.Caller
}

func (c *Client) call1(method string, params []*xmlrpc.Value) (*xmlrpc.Value, error) {
	vs, err := c.Call(method, params)
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return &xmlrpc.Value{}, nil
	}
	return vs[0], nil
}

// GetDeviceDescription retrieves the device description for the specified
// device or channel address.
func (c *Client) GetDeviceDescription(address string) (*DeviceDescription, error) {
	clnLog.Debugf("Calling method getDeviceDescription(%s) on %s", address, c.Name)
	v, err := c.call1("getDeviceDescription", []*xmlrpc.Value{
		{FlatString: address},
	})
	if err != nil {
		return nil, err
	}
	e := xmlrpc.Q(v)
	d := &DeviceDescription{}
	d.ReadFrom(e)
	if e.Err() != nil {
		return nil, fmt.Errorf("invalid response for getDeviceDescription: %v", e.Err())
	}
	return d, nil
}

// ListDevices retrieves the device descriptions for all devices and
// channels known to the backend.
func (c *Client) ListDevices() ([]*DeviceDescription, error) {
	clnLog.Debugf("Calling method listDevices on %s", c.Name)
	v, err := c.call1("listDevices", []*xmlrpc.Value{})
	if err != nil {
		return nil, err
	}
	e := xmlrpc.Q(v)
	var r []*DeviceDescription
	for _, av := range e.Slice() {
		d := &DeviceDescription{}
		d.ReadFrom(av)
		r = append(r, d)
	}
	if e.Err() != nil {
		return nil, fmt.Errorf("invalid response for listDevices: %v", e.Err())
	}
	return r, nil
}

// GetParamsetDescription retrieves the paramset description of a device or
// channel address.
func (c *Client) GetParamsetDescription(address string, paramsetType ParamsetKey) (ParamsetDescription, error) {
	clnLog.Debugf("Calling method getParamsetDescription(%s, %s) on %s", address, paramsetType, c.Name)
	v, err := c.call1("getParamsetDescription", []*xmlrpc.Value{
		{FlatString: address},
		{FlatString: string(paramsetType)},
	})
	if err != nil {
		return nil, err
	}
	e := xmlrpc.Q(v)
	r := make(ParamsetDescription)
	for n, pv := range e.Map() {
		p := &ParameterDescription{}
		p.ReadFrom(pv)
		if e.Err() != nil {
			break
		}
		r[n] = p
	}
	if e.Err() != nil {
		return nil, fmt.Errorf("invalid response for getParamsetDescription: %v", e.Err())
	}
	return r, nil
}

// GetParamset retrieves the current values of the specified paramset.
func (c *Client) GetParamset(address string, paramsetType ParamsetKey) (map[string]interface{}, error) {
	clnLog.Debugf("Calling method getParamset(%s, %s) on %s", address, paramsetType, c.Name)
	v, err := c.call1("getParamset", []*xmlrpc.Value{
		{FlatString: address},
		{FlatString: string(paramsetType)},
	})
	if err != nil {
		return nil, err
	}
	e := xmlrpc.Q(v)
	r := make(map[string]interface{})
	for n, pv := range e.Map() {
		vv := pv.Any()
		if e.Err() != nil {
			break
		}
		r[n] = vv
	}
	if e.Err() != nil {
		return nil, fmt.Errorf("invalid response for getParamset: %v", e.Err())
	}
	return r, nil
}

// PutParamset writes the specified paramset.
func (c *Client) PutParamset(address string, paramsetType ParamsetKey, paramset map[string]interface{}) error {
	clnLog.Debugf("Calling method putParamset(%s, %s) on %s", address, paramsetType, c.Name)
	ps, err := xmlrpc.NewValue(paramset)
	if err != nil {
		return err
	}
	resp, err := c.call1("putParamset", []*xmlrpc.Value{
		{FlatString: address},
		{FlatString: string(paramsetType)},
		ps,
	})
	if err != nil {
		return err
	}
	if err := assertEmptyResponse(resp); err != nil {
		return fmt.Errorf("invalid response for putParamset: %v", err)
	}
	return nil
}

func assertEmptyResponse(v *xmlrpc.Value) error {
	q := xmlrpc.Q(v)
	s := q.String()
	if q.Err() != nil || s != "" {
		return fmt.Errorf("expected empty string response")
	}
	return nil
}

// SetValue sets a single value in the VALUES paramset.
func (c *Client) SetValue(address string, valueKey string, value interface{}) error {
	clnLog.Debugf("Calling method setValue(%s, %s, %v) on %s", address, valueKey, value, c.Name)
	v, err := xmlrpc.NewValue(value)
	if err != nil {
		return err
	}
	resp, err := c.call1("setValue", []*xmlrpc.Value{
		{FlatString: address},
		{FlatString: valueKey},
		v,
	})
	if err != nil {
		return err
	}
	if err := assertEmptyResponse(resp); err != nil {
		return fmt.Errorf("invalid response for setValue: %v", err)
	}
	return nil
}

// GetValue gets a single value from the VALUES paramset.
func (c *Client) GetValue(address string, valueKey string) (interface{}, error) {
	clnLog.Debugf("Calling method getValue(%s, %s) on %s", address, valueKey, c.Name)
	resp, err := c.call1("getValue", []*xmlrpc.Value{
		{FlatString: address},
		{FlatString: valueKey},
	})
	if err != nil {
		return nil, err
	}
	q := xmlrpc.Q(resp)
	res := q.Any()
	if q.Err() != nil {
		return nil, fmt.Errorf("invalid response for getValue: %v", q.Err())
	}
	return res, nil
}

// Init registers callbackURL to receive events for interfaceID. Passing an
// empty interfaceID cancels the subscription.
func (c *Client) Init(callbackURL, interfaceID string) error {
	clnLog.Debugf("Calling method init(%s, %s) on %s", callbackURL, interfaceID, c.Name)
	params := []*xmlrpc.Value{{FlatString: callbackURL}}
	if interfaceID != "" {
		params = append(params, &xmlrpc.Value{FlatString: interfaceID})
	}
	resp, err := c.call1("init", params)
	if err != nil {
		return err
	}
	if err := assertEmptyResponse(resp); err != nil {
		return fmt.Errorf("invalid response for init: %v", err)
	}
	return nil
}

// Deinit cancels a previously registered callback subscription.
func (c *Client) Deinit(callbackURL string) error {
	return c.Init(callbackURL, "")
}

// GetVersion returns the backend's API version string.
func (c *Client) GetVersion() (string, error) {
	resp, err := c.call1("getVersion", nil)
	if err != nil {
		return "", err
	}
	q := xmlrpc.Q(resp)
	s := q.String()
	if q.Err() != nil {
		return "", fmt.Errorf("invalid response for getVersion: %v", q.Err())
	}
	return s, nil
}

// ListMethods returns the set of methods the backend reports supporting.
func (c *Client) ListMethods() ([]string, error) {
	resp, err := c.call1("system.listMethods", nil)
	if err != nil {
		return nil, err
	}
	q := xmlrpc.Q(resp)
	s := q.Strings()
	if q.Err() != nil {
		return nil, fmt.Errorf("invalid response for system.listMethods: %v", q.Err())
	}
	return s, nil
}

// Ping triggers a pong event carrying callerID, which the backend echoes
// back through the callback server encoded as "<interfaceID>#<ms-ts>".
func (c *Client) Ping(callerID string) (bool, error) {
	clnLog.Debugf("Calling method ping(%s) on %s", callerID, c.Name)
	resp, err := c.call1("ping", []*xmlrpc.Value{
		{FlatString: callerID},
	})
	if err != nil {
		return false, err
	}
	q := xmlrpc.Q(resp)
	res := q.Bool()
	if q.Err() != nil {
		// some backends (e.g. BidCos-RF) wrap the bool in a single-element
		// array instead of returning it directly
		q2 := xmlrpc.Q(resp)
		res = q2.Idx(0).Bool()
		if q2.Err() != nil {
			return false, fmt.Errorf("invalid response for ping: %v, %v", q.Err(), q2.Err())
		}
	}
	return res, nil
}
