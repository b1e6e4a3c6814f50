package support

import (
	"crypto/tls"
	"strconv"
)

// TLSConfig builds the *tls.Config used for HTTPS connections to a backend.
// CCUs commonly present a self-signed certificate, so verify controls
// whether that certificate is actually checked; grounded on the original
// project's VERIFIED_CTX/UNVERIFIED_CTX pair in helpers.py, which differ
// only in check_hostname/verify_mode.
func TLSConfig(verify bool) *tls.Config {
	return &tls.Config{InsecureSkipVerify: !verify}
}

// BaseURL builds a backend endpoint URL from its components, mirroring the
// original project's build_api_url: credentials are embedded in the
// authority when a username is set, scheme reflects useTLS, and path is
// normalized to start with a single '/'.
func BaseURL(host string, port int, path string, username, password string, useTLS bool) string {
	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	credentials := ""
	if username != "" {
		credentials = username
		if password != "" {
			credentials += ":" + password
		}
		credentials += "@"
	}
	if path != "" && path[0] != '/' {
		path = "/" + path
	}
	return scheme + "://" + credentials + host + ":" + strconv.Itoa(port) + path
}
