package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ginSink adapts a gin response to relayDomain.Sink.
type ginSink struct {
	c       *gin.Context
	rc      *http.ResponseController
	aborted bool
}

func newGinSink(c *gin.Context) *ginSink {
	return &ginSink{
		c:  c,
		rc: http.NewResponseController(c.Writer),
	}
}

func (s *ginSink) WriteHeader(statusCode int, header http.Header) {
	dst := s.c.Writer.Header()
	for name, values := range header {
		dst[name] = values
	}
	s.c.Status(statusCode)
	s.c.Writer.WriteHeaderNow()
}

func (s *ginSink) Write(p []byte) (int, error) {
	return s.c.Writer.Write(p)
}

func (s *ginSink) Flush() error {
	return s.rc.Flush()
}

func (s *ginSink) Done() <-chan struct{} {
	return s.c.Request.Context().Done()
}

// Abort marks the response as broken. The connection is dropped by finish once
// the relay has released its resources.
func (s *ginSink) Abort() {
	s.aborted = true
}

// finish drops the client connection when the response was aborted. Panicking
// with http.ErrAbortHandler makes net/http close the connection without writing
// the final chunk, so the client sees a truncated response instead of a short
// but well-formed one.
func (s *ginSink) finish() {
	if s.aborted {
		s.c.Abort()
		panic(http.ErrAbortHandler)
	}
}
