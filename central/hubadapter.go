package central

import (
	"fmt"

	"github.com/mdzio/go-hmcentral/entity"
	"github.com/mdzio/go-hmcentral/jsonrpc"
)

// jsonSysVarWriter adapts jsonrpc.Client.WriteSysVarByName, which takes a
// string, to hub.SysVarWriter, which takes an entity.Value.
type jsonSysVarWriter struct {
	client *jsonrpc.Client
}

func sysVarWriterFor(client *jsonrpc.Client) *jsonSysVarWriter {
	return &jsonSysVarWriter{client: client}
}

func (w *jsonSysVarWriter) WriteSysVar(name string, v entity.Value) error {
	return w.client.WriteSysVarByName(name, fmt.Sprintf("%v", v.Wire()))
}
