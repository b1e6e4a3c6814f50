package hub

import (
	"sync"

	"github.com/mdzio/go-hmcentral/jsonrpc"
	"github.com/mdzio/go-logging"
)

var hubLog = logging.Get("hub")

// SysVarSource lists the backend's current system variables; central
// supplies jsonrpc.Client.SystemVariables.
type SysVarSource interface {
	SystemVariables() ([]jsonrpc.SysVar, error)
}

// ProgramSource lists the backend's current programs; central supplies
// jsonrpc.Client.Programs.
type ProgramSource interface {
	Programs() ([]jsonrpc.Program, error)
}

// Manager owns the set of SystemVariables and ProgramButtons for one
// central, reconciling them against the backend on each Refresh call by
// computing the set difference between the remote inventory and the local
// one: entities whose id/name disappeared are removed, new ones are
// created, and existing ones have their value or metadata updated in
// place.
type Manager struct {
	centralName string
	sysVarSrc   SysVarSource
	sysVarWrite SysVarWriter
	progSrc     ProgramSource
	progExec    ProgramExecutor

	mtx      sync.RWMutex
	sysVars  map[string]*SystemVariable
	programs map[string]*ProgramButton
}

// New creates a Manager for one central. sysVarSrc/sysVarWrite and
// progSrc/progExec are typically the same *jsonrpc.Client, split into
// narrow interfaces so tests can fake each independently.
func New(centralName string, sysVarSrc SysVarSource, sysVarWrite SysVarWriter, progSrc ProgramSource, progExec ProgramExecutor) *Manager {
	return &Manager{
		centralName: centralName,
		sysVarSrc:   sysVarSrc,
		sysVarWrite: sysVarWrite,
		progSrc:     progSrc,
		progExec:    progExec,
		sysVars:     make(map[string]*SystemVariable),
		programs:    make(map[string]*ProgramButton),
	}
}

// SystemVariable looks up a previously reconciled system variable by name.
func (m *Manager) SystemVariable(name string) (*SystemVariable, bool) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	sv, ok := m.sysVars[name]
	return sv, ok
}

// SystemVariables returns a snapshot of every currently known system
// variable.
func (m *Manager) SystemVariables() []*SystemVariable {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	out := make([]*SystemVariable, 0, len(m.sysVars))
	for _, sv := range m.sysVars {
		out = append(out, sv)
	}
	return out
}

// Program looks up a previously reconciled program button by id.
func (m *Manager) Program(id string) (*ProgramButton, bool) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	p, ok := m.programs[id]
	return p, ok
}

// Programs returns a snapshot of every currently known program button.
func (m *Manager) Programs() []*ProgramButton {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	out := make([]*ProgramButton, 0, len(m.programs))
	for _, p := range m.programs {
		out = append(out, p)
	}
	return out
}

// RefreshSysVars fetches the backend's current system variables and
// reconciles the local set against them, returning the names of the
// variables newly created by this call.
func (m *Manager) RefreshSysVars() ([]string, error) {
	remote, err := m.sysVarSrc.SystemVariables()
	if err != nil {
		return nil, err
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	seen := make(map[string]struct{}, len(remote))
	var created []string
	for _, sv := range remote {
		seen[sv.Name] = struct{}{}
		if existing, ok := m.sysVars[sv.Name]; ok && existing.Kind == kindFor(sv.Type, sv.Extended) {
			existing.update(sv)
			continue
		}
		built, err := newSystemVariable(m.centralName, sv, m.sysVarWrite)
		if err != nil {
			hubLog.Warningf("skipping system variable %s: %v", sv.Name, err)
			continue
		}
		m.sysVars[sv.Name] = built
		created = append(created, sv.Name)
	}
	for name := range m.sysVars {
		if _, ok := seen[name]; !ok {
			delete(m.sysVars, name)
		}
	}
	return created, nil
}

// RefreshPrograms fetches the backend's current programs and reconciles
// the local set against them, returning the ids of the programs newly
// created by this call.
func (m *Manager) RefreshPrograms() ([]string, error) {
	remote, err := m.progSrc.Programs()
	if err != nil {
		return nil, err
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	seen := make(map[string]struct{}, len(remote))
	var created []string
	for _, p := range remote {
		seen[p.ID] = struct{}{}
		if existing, ok := m.programs[p.ID]; ok {
			existing.update(p)
			continue
		}
		m.programs[p.ID] = newProgramButton(m.centralName, p, m.progExec)
		created = append(created, p.ID)
	}
	for id := range m.programs {
		if _, ok := seen[id]; !ok {
			delete(m.programs, id)
		}
	}
	return created, nil
}
