package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"

	"golang.org/x/text/encoding/charmap"

	"github.com/mdzio/go-logging"
)

var svrLog = logging.Get("xmlrpc-server")

// default maximal size of a valid request: 10 MB
const defaultRequestSizeLimit = 10 * 1024 * 1024

// Handler implements an http.Handler for XML-RPC. Incoming method calls are
// dispatched through the embedded Dispatcher, which is how the embedded
// callback server routes backend events to the owning central.
type Handler struct {
	RequestSizeLimit int64
	Dispatcher
}

func (h *Handler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	svrLog.Tracef("Request received from %s, URI %s", req.RemoteAddr, req.RequestURI)

	limit := h.RequestSizeLimit
	if limit == 0 {
		limit = defaultRequestSizeLimit
	}
	reqLimitReader := http.MaxBytesReader(resp, req.Body, limit)
	reqBuf, err := ioutil.ReadAll(reqLimitReader)
	if err != nil {
		svrLog.Errorf("Reading of request failed from %s: %v", req.RemoteAddr, err)
		http.Error(resp, "reading of request failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if svrLog.TraceEnabled() {
		svrLog.Tracef("Request XML: %s", string(reqBuf))
	}

	methodCall := &MethodCall{}
	dec := xml.NewDecoder(bytes.NewReader(reqBuf))
	// CCU backends declare ISO-8859-1 in the prolog but in practice already
	// send UTF-8 on the callback channel; trust the bytes, not the label.
	dec.CharsetReader = func(charsetName string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := dec.Decode(methodCall); err != nil {
		svrLog.Errorf("Decoding of request from %s failed: %v", req.RemoteAddr, err)
		http.Error(resp, "decoding of request failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	var args *Value
	if methodCall.Params != nil {
		data := make([]*Value, len(methodCall.Params.Param))
		for i, p := range methodCall.Params.Param {
			data[i] = p.Value
		}
		args = &Value{Array: &Array{Data: data}}
	} else {
		args = &Value{Array: &Array{}}
	}

	res, err := h.Dispatch(methodCall.MethodName, args)
	var methodResponse *MethodResponse
	if err != nil {
		svrLog.Warningf("Dispatch of %s from %s failed: %v", methodCall.MethodName, req.RemoteAddr, err)
		methodResponse = newFaultResponse(err)
	} else {
		methodResponse = newMethodResponse(res)
	}

	var respBuf bytes.Buffer
	respBuf.WriteString(`<?xml version="1.0" encoding="ISO-8859-1"?>` + "\n")
	respWriter := charmap.ISO8859_1.NewEncoder().Writer(&respBuf)
	enc := xml.NewEncoder(respWriter)
	if err := enc.Encode(methodResponse); err != nil {
		svrLog.Errorf("Encoding of response for %s failed: %v", req.RemoteAddr, err)
		http.Error(resp, "encoding of response failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if svrLog.TraceEnabled() {
		svrLog.Tracef("Response XML: %s", respBuf.String())
	}

	resp.Header().Set("Content-Type", "text/xml")
	resp.Header().Set("Content-Length", strconv.Itoa(respBuf.Len()))
	if _, err := resp.Write(respBuf.Bytes()); err != nil {
		svrLog.Warningf("Sending of response for %s failed: %v", req.RemoteAddr, err)
	}
}
