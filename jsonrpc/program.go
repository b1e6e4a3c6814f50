package jsonrpc

import (
	"encoding/json"

	"github.com/mdzio/go-hmcentral/errs"
)

// Program is one ReGaHss program as reported by Program.getAll.
type Program struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"isActive"`
	IsInternal  bool   `json:"isInternal"`
	LastExecute string `json:"lastExecuteTime"`
}

// Programs retrieves every program known to the backend.
func (c *Client) Programs() ([]Program, error) {
	raw, err := c.Post("Program.getAll", nil)
	if err != nil {
		return nil, err
	}
	var programs []Program
	if err := json.Unmarshal(raw, &programs); err != nil {
		return nil, errs.Wrap(errs.ClientError, err, "decoding Program.getAll response failed")
	}
	return programs, nil
}

// ExecProgram triggers a program run. The backend schedules it
// asynchronously; ExecProgram does not wait for completion.
func (c *Client) ExecProgram(id string) error {
	_, err := c.Post("Program.execute", map[string]interface{}{"id": id})
	return err
}
