// Package itf provides the typed device-layer view of the XML-RPC wire
// protocol: device and parameter descriptions, and a Caller wrapper exposing
// the backend's RPC interface methods (init, listDevices, getParamset, ...)
// as typed Go functions.
package itf

import "github.com/mdzio/go-hmcentral/xmlrpc"

// Operation bits for ParameterDescription.Operations.
const (
	OperationRead  = 0x01
	OperationWrite = 0x02
	OperationEvent = 0x04
)

// Flag bits for ParameterDescription.Flags.
const (
	FlagVisible  = 0x01
	FlagInternal = 0x02
	FlagService  = 0x08
)

// ParameterType enumerates the scalar kinds a ParameterDescription.Type can
// hold.
type ParameterType string

// Recognized parameter types.
const (
	ParamTypeAction  ParameterType = "ACTION"
	ParamTypeBool    ParameterType = "BOOL"
	ParamTypeEnum    ParameterType = "ENUM"
	ParamTypeFloat   ParameterType = "FLOAT"
	ParamTypeInteger ParameterType = "INTEGER"
	ParamTypeString  ParameterType = "STRING"
)

// ParamsetKey names one of the three paramset kinds a device exposes.
type ParamsetKey string

// Recognized paramset keys.
const (
	ParamsetValues ParamsetKey = "VALUES"
	ParamsetMaster ParamsetKey = "MASTER"
	ParamsetLink   ParamsetKey = "LINK"
)

// DeviceDescription describes a HomeMatic device or channel.
type DeviceDescription struct {
	Type              string
	Address           string
	RFAddress         int
	Children          []string
	Parent            string
	ParentType        string
	Index             int
	AESActive         int
	Paramsets         []string
	Firmware          string
	AvailableFirmware string
	Updatable         bool
	Version           int

	// Flags is a bit mask for the presentation in the UI.
	// 0x01: visible for user
	// 0x02: internal (not visible)
	// 0x08: object not deleteable
	Flags int

	LinkSourceRoles string
	LinkTargetRoles string

	// Direction of a direct channel connection.
	// 0: none (direct connection not supported)
	// 1: sender
	// 2: receiver
	Direction int

	Group        string
	Team         string
	TeamTag      string
	TeamChannels []string
	Interface    string
	Roaming      int

	// RXMode is a bit mask of the receive modes.
	// 0x01: always
	// 0x02: burst (wake on radio)
	// 0x04: config (reachable after pressing config button)
	// 0x08: wakeup (after communication with the CCU)
	// 0x10: lazy config (config mode after normal use, e.g. key press)
	RXMode int
}

// IsDevice reports whether this description is for a device (as opposed to
// one of its channels): devices have no parent.
func (d *DeviceDescription) IsDevice() bool {
	return d.Parent == ""
}

// ReadFrom reads the field values from an xmlrpc.Query.
func (d *DeviceDescription) ReadFrom(e *xmlrpc.Query) {
	d.Type = e.TryKey("TYPE").String()
	d.Address = e.TryKey("ADDRESS").String()
	d.RFAddress = e.TryKey("RF_ADDRESS").Int()
	// The interface VirtualDevices of the CCU returns an empty XML-RPC value
	// instead of an empty XML-RPC array, if the device has no children.
	c := e.TryKey("CHILDREN")
	if c.IsNotEmpty() {
		d.Children = c.Strings()
	}
	d.Parent = e.TryKey("PARENT").String()
	d.ParentType = e.TryKey("PARENT_TYPE").String()
	d.Index = e.TryKey("INDEX").Int()
	d.AESActive = e.TryKey("AES_ACTIVE").Int()
	d.Paramsets = e.TryKey("PARAMSETS").Strings()
	d.Firmware = e.TryKey("FIRMWARE").String()
	d.AvailableFirmware = e.TryKey("AVAILABLE_FIRMWARE").String()
	u := e.TryKey("UPDATABLE")
	if u.IsNotEmpty() {
		d.Updatable = u.Bool()
	}
	d.Version = e.TryKey("VERSION").Int()
	d.Flags = e.TryKey("FLAGS").Int()
	d.LinkSourceRoles = e.TryKey("LINK_SOURCE_ROLES").String()
	d.LinkTargetRoles = e.TryKey("LINK_TARGET_ROLES").String()
	d.Direction = e.TryKey("DIRECTION").Int()
	d.Group = e.TryKey("GROUP").String()
	d.Team = e.TryKey("TEAM").String()
	d.TeamTag = e.TryKey("TEAM_TAG").String()
	d.TeamChannels = e.TryKey("TEAM_CHANNELS").Strings()
	d.Interface = e.TryKey("INTERFACE").String()
	d.Roaming = e.TryKey("ROAMING").Int()
	d.RXMode = e.TryKey("RX_MODE").Int()
}

// ParameterDescription describes a single parameter of a paramset.
type ParameterDescription struct {
	Type ParameterType

	// Operations is a bit field: OperationRead|OperationWrite|OperationEvent.
	Operations int

	// Flags is a bit field: FlagVisible|FlagInternal|FlagService.
	Flags int

	Default  interface{}
	Max      interface{}
	Min      interface{}
	Unit     string
	TabOrder int
	Control  string
	ID       string

	// ValueList holds the ordered labels for ENUM and BOOL parameters.
	ValueList []string

	// Special holds named out-of-range admissible values (e.g. "not used"
	// for a numeric sensor that reports a sentinel when disconnected).
	Special map[string]interface{}
}

// ReadFrom reads the field values from an xmlrpc.Query.
func (p *ParameterDescription) ReadFrom(e *xmlrpc.Query) {
	p.Type = ParameterType(e.TryKey("TYPE").String())
	p.Operations = e.TryKey("OPERATIONS").Int()
	p.Flags = e.TryKey("FLAGS").Int()
	p.Default = e.TryKey("DEFAULT").Any()
	p.Min = e.TryKey("MIN").Any()
	p.Max = e.TryKey("MAX").Any()
	p.Unit = e.TryKey("UNIT").String()
	p.TabOrder = e.TryKey("TAB_ORDER").Int()
	p.Control = e.TryKey("CONTROL").String()
	p.ID = e.TryKey("ID").String()
	vl := e.TryKey("VALUE_LIST")
	if vl.IsNotEmpty() {
		p.ValueList = vl.Strings()
	}
	sp := e.TryKey("SPECIAL")
	if sp.IsNotEmpty() {
		p.Special = make(map[string]interface{})
		for name, q := range sp.Map() {
			p.Special[name] = q.Key("VALUE").Any()
		}
	}
}

// Readable reports whether the parameter can be read.
func (p *ParameterDescription) Readable() bool {
	return p.Operations&OperationRead != 0
}

// Writable reports whether the parameter can be written.
func (p *ParameterDescription) Writable() bool {
	return p.Operations&OperationWrite != 0
}

// Eventful reports whether the parameter emits change events.
func (p *ParameterDescription) Eventful() bool {
	return p.Operations&OperationEvent != 0
}

// Visible reports whether the parameter should be exposed to a host UI.
func (p *ParameterDescription) Visible() bool {
	return p.Flags&FlagVisible != 0 && p.Flags&FlagInternal == 0
}

// ParamsetDescription describes a parameter set (e.g. VALUES) of a device or
// channel: a map from parameter name to its description.
type ParamsetDescription map[string]*ParameterDescription
