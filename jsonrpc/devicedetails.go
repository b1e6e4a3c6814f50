package jsonrpc

import (
	"encoding/json"

	"github.com/mdzio/go-hmcentral/errs"
)

// remoteDeviceDetail mirrors one element of Device.listAllDetail.
type remoteDeviceDetail struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Interface   string `json:"interface"`
	ChannelInfo []struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"channels"`
}

// Names retrieves address -> display name for every device and channel
// known to the backend, via Device.listAllDetail.
func (c *Client) Names() (map[string]string, error) {
	details, err := c.deviceDetails()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, d := range details {
		out[d.Address] = d.Name
		for _, ch := range d.ChannelInfo {
			out[ch.Address] = ch.Name
		}
	}
	return out, nil
}

// Interfaces retrieves device address -> owning interface id, via
// Device.listAllDetail.
func (c *Client) Interfaces() (map[string]string, error) {
	details, err := c.deviceDetails()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(details))
	for _, d := range details {
		out[d.Address] = d.Interface
	}
	return out, nil
}

func (c *Client) deviceDetails() ([]remoteDeviceDetail, error) {
	raw, err := c.Post("Device.listAllDetail", nil)
	if err != nil {
		return nil, err
	}
	var details []remoteDeviceDetail
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, errs.Wrap(errs.ClientError, err, "decoding Device.listAllDetail response failed")
	}
	return details, nil
}

// remoteChannelGroup is shared by Room.getAll and Subsection.getAll: both
// return a list of named groups, each carrying the channel addresses
// assigned to it.
type remoteChannelGroup struct {
	Name     string   `json:"name"`
	Channels []string `json:"channelIds"`
}

// ChannelRooms retrieves channel address -> room names, via Room.getAll.
func (c *Client) ChannelRooms() (map[string][]string, error) {
	return c.channelGroups("Room.getAll")
}

// ChannelFunctions retrieves channel address -> function names, via
// Subsection.getAll.
func (c *Client) ChannelFunctions() (map[string][]string, error) {
	return c.channelGroups("Subsection.getAll")
}

func (c *Client) channelGroups(method string) (map[string][]string, error) {
	raw, err := c.Post(method, nil)
	if err != nil {
		return nil, err
	}
	var groups []remoteChannelGroup
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, errs.Wrapf(errs.ClientError, err, "decoding %s response failed", method)
	}
	out := make(map[string][]string)
	for _, g := range groups {
		for _, ch := range g.Channels {
			out[ch] = append(out[ch], g.Name)
		}
	}
	return out, nil
}
