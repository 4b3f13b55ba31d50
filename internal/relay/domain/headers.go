package domain

import "net/http"

// hopHeaders are never forwarded to the client. The body is re-framed by the
// local server, so upstream framing and encoding headers no longer apply.
var hopHeaders = []string{
	"Content-Encoding",
	"Transfer-Encoding",
	"Connection",
}

// FilterHeaders returns the response headers to forward to the client. When the
// transport transparently decompressed the body, Content-Length is dropped too.
func FilterHeaders(upstream http.Header, uncompressed bool) http.Header {
	out := upstream.Clone()
	if out == nil {
		out = http.Header{}
	}
	for _, name := range hopHeaders {
		out.Del(name)
	}
	if uncompressed {
		out.Del("Content-Length")
	}
	return out
}
