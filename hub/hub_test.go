package hub

import (
	"testing"

	"github.com/mdzio/go-hmcentral/entity"
	"github.com/mdzio/go-hmcentral/jsonrpc"
)

type fakeSysVarSource struct {
	vars []jsonrpc.SysVar
	err  error
}

func (f *fakeSysVarSource) SystemVariables() ([]jsonrpc.SysVar, error) {
	return f.vars, f.err
}

type fakeSysVarWriter struct {
	writes map[string]entity.Value
}

func (f *fakeSysVarWriter) WriteSysVar(name string, v entity.Value) error {
	if f.writes == nil {
		f.writes = make(map[string]entity.Value)
	}
	f.writes[name] = v
	return nil
}

type fakeProgramSource struct {
	programs []jsonrpc.Program
}

func (f *fakeProgramSource) Programs() ([]jsonrpc.Program, error) {
	return f.programs, nil
}

type fakeProgramExecutor struct {
	executed []string
}

func (f *fakeProgramExecutor) ExecProgram(id string) error {
	f.executed = append(f.executed, id)
	return nil
}

func TestRefreshSysVarsCreatesAndTypes(t *testing.T) {
	src := &fakeSysVarSource{vars: []jsonrpc.SysVar{
		{ID: "1", Name: "Alarm", Type: "ALARM", Value: "true", Extended: true},
		{ID: "2", Name: "Mode", Type: "LIST", Value: "1", ValueList: []string{"AUTO", "MANUAL"}},
		{ID: "3", Name: "Setpoint", Type: "NUMBER", Value: "21.5", Extended: true},
	}}
	writer := &fakeSysVarWriter{}
	m := New("ccu-test", src, writer, &fakeProgramSource{}, &fakeProgramExecutor{})

	created, err := m.RefreshSysVars()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 created variables, got %v", created)
	}

	alarm, ok := m.SystemVariable("Alarm")
	if !ok || alarm.Kind != KindSwitch || !alarm.Writable {
		t.Fatalf("expected Alarm to be an extended-writable Switch, got %+v", alarm)
	}
	v, hasValue := alarm.Value()
	if !hasValue || v.Kind != entity.ValueBool || !v.Bool {
		t.Fatalf("expected Alarm value true, got %+v", v)
	}

	mode, ok := m.SystemVariable("Mode")
	if !ok || mode.Kind != KindSelect {
		t.Fatalf("expected Mode to be a Select, got %+v", mode)
	}
	v, _ = mode.Value()
	if v.EnumLabel != "MANUAL" {
		t.Fatalf("expected Mode value MANUAL, got %+v", v)
	}

	setpoint, ok := m.SystemVariable("Setpoint")
	if !ok || setpoint.Kind != KindNumber {
		t.Fatalf("expected Setpoint to be a Number, got %+v", setpoint)
	}
}

func TestRefreshSysVarsRemovesMissingAndUpdatesExisting(t *testing.T) {
	src := &fakeSysVarSource{vars: []jsonrpc.SysVar{
		{ID: "1", Name: "Alarm", Type: "ALARM", Value: "false"},
		{ID: "2", Name: "Gone", Type: "ALARM", Value: "false"},
	}}
	writer := &fakeSysVarWriter{}
	m := New("ccu-test", src, writer, &fakeProgramSource{}, &fakeProgramExecutor{})
	if _, err := m.RefreshSysVars(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var notified []entity.Value
	alarm, _ := m.SystemVariable("Alarm")
	alarm.Subscribe(func(v entity.Value) { notified = append(notified, v) })

	src.vars = []jsonrpc.SysVar{{ID: "1", Name: "Alarm", Type: "ALARM", Value: "true"}}
	created, err := m.RefreshSysVars()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("expected no new variables, got %v", created)
	}
	if _, ok := m.SystemVariable("Gone"); ok {
		t.Fatal("expected Gone to be removed after it disappeared from the backend")
	}
	if len(notified) != 1 || !notified[0].Bool {
		t.Fatalf("expected one notification of the new value true, got %v", notified)
	}
}

func TestSystemVariableSetRejectsWhenNotWritable(t *testing.T) {
	src := &fakeSysVarSource{vars: []jsonrpc.SysVar{
		{ID: "1", Name: "ReadOnly", Type: "ALARM", Value: "false"},
	}}
	writer := &fakeSysVarWriter{}
	m := New("ccu-test", src, writer, &fakeProgramSource{}, &fakeProgramExecutor{})
	m.RefreshSysVars()

	sv, _ := m.SystemVariable("ReadOnly")
	if err := sv.Set(entity.Value{Kind: entity.ValueBool, Bool: true}); err == nil {
		t.Fatal("expected Set on a non-extended system variable to fail")
	}
}

func TestSystemVariableSetDispatchesToWriter(t *testing.T) {
	src := &fakeSysVarSource{vars: []jsonrpc.SysVar{
		{ID: "1", Name: "Writable", Type: "ALARM", Value: "false", Extended: true},
	}}
	writer := &fakeSysVarWriter{}
	m := New("ccu-test", src, writer, &fakeProgramSource{}, &fakeProgramExecutor{})
	m.RefreshSysVars()

	sv, _ := m.SystemVariable("Writable")
	if err := sv.Set(entity.Value{Kind: entity.ValueBool, Bool: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !writer.writes["Writable"].Bool {
		t.Fatal("expected the writer to receive the new value")
	}
}

func TestRefreshProgramsCreatesUpdatesAndRemoves(t *testing.T) {
	progSrc := &fakeProgramSource{programs: []jsonrpc.Program{
		{ID: "10", Name: "Morning", IsActive: true},
		{ID: "20", Name: "Evening", IsActive: false},
	}}
	exec := &fakeProgramExecutor{}
	m := New("ccu-test", &fakeSysVarSource{}, &fakeSysVarWriter{}, progSrc, exec)

	created, err := m.RefreshPrograms()
	if err != nil || len(created) != 2 {
		t.Fatalf("expected 2 created programs, got %v, %v", created, err)
	}

	progSrc.programs = []jsonrpc.Program{{ID: "10", Name: "Morning Renamed", IsActive: false}}
	created, err = m.RefreshPrograms()
	if err != nil || len(created) != 0 {
		t.Fatalf("expected no new programs, got %v, %v", created, err)
	}
	if _, ok := m.Program("20"); ok {
		t.Fatal("expected program 20 to be removed")
	}
	morning, ok := m.Program("10")
	if !ok || morning.Name != "Morning Renamed" || morning.Active {
		t.Fatalf("expected program 10 to be updated in place, got %+v", morning)
	}

	if err := morning.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exec.executed) != 1 || exec.executed[0] != "10" {
		t.Fatalf("expected program 10 to be executed, got %v", exec.executed)
	}
}
