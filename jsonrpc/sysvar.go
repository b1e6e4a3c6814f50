package jsonrpc

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mdzio/go-hmcentral/errs"
)

// remoteSysVar mirrors one element of the CCU's SysVar.getAll response.
type remoteSysVar struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Unit        string `json:"unit"`
	Value       string `json:"value"`
	ValueList   string `json:"valueList"`
	MinValue    string `json:"minValue"`
	MaxValue    string `json:"maxValue"`
	IsInternal  bool   `json:"isInternal"`
}

// SysVar is one system variable as reported by SysVar.getAll, with the
// extended-dashboard marker folded in from the bundled ext-marker script.
type SysVar struct {
	ID          string
	Name        string
	Description string
	Type        string // ALARM, LOGIC, LIST, NUMBER or STRING
	Unit        string
	Value       string
	ValueList   []string
	MinValue    *float64
	MaxValue    *float64
	IsInternal  bool
	Extended    bool
}

// SystemVariables retrieves every system variable known to the backend,
// annotated with whether it is marked for extended (read/write) dashboard
// use by the bundled sysVarExtMarkers script.
func (c *Client) SystemVariables() ([]SysVar, error) {
	raw, err := c.Post("SysVar.getAll", nil)
	if err != nil {
		return nil, err
	}
	var remote []remoteSysVar
	if err := json.Unmarshal(raw, &remote); err != nil {
		return nil, errs.Wrap(errs.ClientError, err, "decoding SysVar.getAll response failed")
	}

	ext, err := c.sysVarExtMarkers()
	if err != nil {
		return nil, err
	}

	vars := make([]SysVar, 0, len(remote))
	for _, r := range remote {
		sv := SysVar{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Type:        r.Type,
			Unit:        r.Unit,
			Value:       r.Value,
			IsInternal:  r.IsInternal,
			Extended:    ext[r.ID],
		}
		if r.ValueList != "" {
			sv.ValueList = strings.Split(r.ValueList, ";")
		}
		if r.MinValue != "" {
			if f, err := strconv.ParseFloat(r.MinValue, 64); err == nil {
				sv.MinValue = &f
			}
		}
		if r.MaxValue != "" {
			if f, err := strconv.ParseFloat(r.MaxValue, 64); err == nil {
				sv.MaxValue = &f
			}
		}
		vars = append(vars, sv)
	}
	return vars, nil
}

// sysVarExtMarkers maps a system variable's id to whether it has been
// flagged for extended use, a distinction SysVar.getAll itself does not
// carry; the backend only exposes it through a small ReGa script.
func (c *Client) sysVarExtMarkers() (map[string]bool, error) {
	raw, err := c.PostScript("sysVarExtMarkers", nil)
	if err != nil {
		return nil, err
	}
	var markers map[string]bool
	if err := json.Unmarshal(raw, &markers); err != nil {
		return nil, errs.Wrap(errs.ClientError, err, "decoding sysvar ext markers failed")
	}
	return markers, nil
}

// WriteSysVarByName sets a system variable's value. val is sent as the
// backend's native string encoding for the variable's type (rendered by
// the caller).
func (c *Client) WriteSysVarByName(name, val string) error {
	_, err := c.PostScript("setSysVarByName", map[string]interface{}{
		"varName": name,
		"value":   val,
	})
	return err
}
