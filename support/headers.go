package support

import (
	"net/http"
	"strconv"
)

// JSONRequestHeaders returns the header set the original project's
// json_rpc_post sends on every JSON-RPC POST: a JSON content type and an
// explicit content length.
func JSONRequestHeaders(bodyLen int) http.Header {
	h := make(http.Header, 2)
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(bodyLen))
	return h
}
