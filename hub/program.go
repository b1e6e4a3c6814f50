package hub

import (
	"github.com/mdzio/go-hmcentral/jsonrpc"
	"github.com/mdzio/go-hmcentral/support"
)

// ProgramExecutor fires a stored program and does not wait for it to
// finish; central supplies an implementation backed by
// jsonrpc.Client.ExecProgram.
type ProgramExecutor interface {
	ExecProgram(id string) error
}

// ProgramButton is a stored ReGaHss program exposed as an execute-only
// entity: it has no value, only an Execute action.
type ProgramButton struct {
	CentralName string
	UniqueID    string
	ID          string
	Name        string
	Description string
	Active      bool
	Internal    bool

	executor ProgramExecutor
}

func newProgramButton(centralName string, p jsonrpc.Program, executor ProgramExecutor) *ProgramButton {
	return &ProgramButton{
		CentralName: centralName,
		UniqueID:    support.UniqueIdentifier(centralName, "hub", "program:"+p.ID),
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.IsActive,
		Internal:    p.IsInternal,
		executor:    executor,
	}
}

// update refreshes the button's metadata from a freshly fetched Program.
// Active/Internal can change without the program's id changing; Name and
// Description are kept in sync too since programs can be renamed in place.
func (p *ProgramButton) update(prog jsonrpc.Program) {
	p.Name = prog.Name
	p.Description = prog.Description
	p.Active = prog.IsActive
	p.Internal = prog.IsInternal
}

// Execute fires the program. The backend runs it asynchronously; Execute
// returns once the request has been accepted, not once the program run has
// completed.
func (p *ProgramButton) Execute() error {
	return p.executor.ExecProgram(p.ID)
}
