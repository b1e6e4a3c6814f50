package hub

import (
	"github.com/mdzio/go-hmcentral/entity"
	"github.com/mdzio/go-hmcentral/errs"
	"github.com/mdzio/go-hmcentral/itf"
	"github.com/mdzio/go-hmcentral/jsonrpc"
	"github.com/mdzio/go-hmcentral/support"
)

// SysVarWriter commits a SystemVariable's new value to the backend. central
// supplies an implementation backed by jsonrpc.Client.WriteSysVarByName.
type SysVarWriter interface {
	WriteSysVar(name string, v entity.Value) error
}

// SystemVariable is a CCU system variable exposed as an entity. Unlike
// GenericEntity it has no channel address and no event stream: its value
// only ever changes through Refresh; Set writes to the backend without
// touching the local value.
type SystemVariable struct {
	CentralName string
	UniqueID    string
	Name        string
	Description string
	Unit        string
	Kind        Kind
	Writable    bool
	ValueList   []string
	Minimum     *float64
	Maximum     *float64

	writer   SysVarWriter
	notifier *entity.Notifier

	value    entity.Value
	hasValue bool
}

func newSystemVariable(centralName string, sv jsonrpc.SysVar, writer SysVarWriter) (*SystemVariable, error) {
	s := &SystemVariable{
		CentralName: centralName,
		UniqueID:    support.UniqueIdentifier(centralName, "hub", sv.Name),
		Name:        sv.Name,
		Description: sv.Description,
		Unit:        sv.Unit,
		Kind:        kindFor(sv.Type, sv.Extended),
		Writable:    sv.Extended,
		ValueList:   sv.ValueList,
		Minimum:     sv.MinValue,
		Maximum:     sv.MaxValue,
		writer:      writer,
		notifier:    entity.NewNotifier(),
	}
	if err := s.applyRaw(sv.Value); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SystemVariable) applyRaw(raw string) error {
	coerced, err := support.CoerceValue(s.kindParamType(), raw)
	if err != nil {
		return errs.Wrapf(errs.ClientError, err, "parsing value of system variable %s failed", s.Name)
	}
	v, err := entity.ConvertValue(coerced, s.kindParamType(), s.ValueList)
	if err != nil {
		return errs.Wrapf(errs.ClientError, err, "converting value of system variable %s failed", s.Name)
	}
	s.value = v
	s.hasValue = true
	return nil
}

func (s *SystemVariable) kindParamType() itf.ParameterType {
	switch s.Kind {
	case KindSwitch, KindBinary:
		return itf.ParamTypeBool
	case KindSelect:
		return itf.ParamTypeEnum
	case KindNumber:
		return itf.ParamTypeFloat
	default:
		return itf.ParamTypeString
	}
}

// update refreshes the local value from a freshly fetched SysVar and
// notifies subscribers. It does not change Kind or Writable; a type change
// on the backend surfaces as the variable being removed and re-created by
// Refresh, matching the set-difference reconciliation contract.
func (s *SystemVariable) update(sv jsonrpc.SysVar) {
	old := s.value
	if err := s.applyRaw(sv.Value); err != nil {
		return
	}
	if !old.Equal(s.value) {
		s.notifier.Notify(s.value)
	}
}

// Value returns the current value and whether one has ever been observed.
func (s *SystemVariable) Value() (entity.Value, bool) {
	return s.value, s.hasValue
}

// Subscribe registers cb to be called whenever the value changes.
func (s *SystemVariable) Subscribe(cb func(entity.Value)) entity.SubscriberID {
	return s.notifier.Subscribe(cb)
}

// Unsubscribe removes a previously registered subscriber.
func (s *SystemVariable) Unsubscribe(id entity.SubscriberID) {
	s.notifier.Unsubscribe(id)
}

// Set writes a new value to the backend. The local value is not
// optimistically updated; it advances on the next Refresh, consistent with
// how GenericEntity.Set defers to the backend's own event/reconciliation
// pass.
func (s *SystemVariable) Set(v entity.Value) error {
	if !s.Writable {
		return errs.Newf(errs.ConfigError, "system variable %s is not writable", s.Name)
	}
	return s.writer.WriteSysVar(s.Name, v)
}
