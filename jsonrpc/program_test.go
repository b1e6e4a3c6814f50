package jsonrpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newProgramServer(t *testing.T, programs []map[string]interface{}) (*httptest.Server, *Client) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string                 `json:"method"`
			Params map[string]interface{} `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "Session.login":
			json.NewEncoder(w).Encode(map[string]interface{}{"result": "sid-1", "error": nil, "id": 0})
		case "Program.getAll":
			json.NewEncoder(w).Encode(map[string]interface{}{"result": programs, "error": nil, "id": 0})
		case "Program.execute":
			if req.Params["id"] != "10" {
				t.Fatalf("unexpected program id: %v", req.Params["id"])
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"result": true, "error": nil, "id": 0})
		default:
			t.Fatalf("unexpected method: %s", req.Method)
		}
	}))
	c := &Client{Addr: strings.TrimPrefix(srv.URL, "http://"), Username: "Admin", Password: "secret"}
	return srv, c
}

func TestProgramsDecodesResponse(t *testing.T) {
	srv, c := newProgramServer(t, []map[string]interface{}{
		{"id": "10", "name": "Morning", "isActive": true, "isInternal": false},
	})
	defer srv.Close()

	programs, err := c.Programs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(programs) != 1 || programs[0].Name != "Morning" || !programs[0].IsActive {
		t.Fatalf("unexpected programs: %+v", programs)
	}
}

func TestExecProgramPostsID(t *testing.T) {
	srv, c := newProgramServer(t, nil)
	defer srv.Close()

	if err := c.ExecProgram("10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
