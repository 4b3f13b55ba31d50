package usecase

import (
	"bytes"
	"errors"
	"net/http"
	"sync"
)

// recordingSink collects everything the relay writes. onWrite runs after each
// successful Write.
type recordingSink struct {
	mu         sync.Mutex
	statusCode int
	header     http.Header
	body       bytes.Buffer
	writes     int
	aborted    bool
	done       chan struct{}
	closeOnce  sync.Once
	headerSent chan struct{}
	onWrite    func(s *recordingSink)
	writeErr   error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		done:       make(chan struct{}),
		headerSent: make(chan struct{}),
	}
}

func (s *recordingSink) WriteHeader(statusCode int, header http.Header) {
	s.mu.Lock()
	s.statusCode = statusCode
	s.header = header
	s.mu.Unlock()
	close(s.headerSent)
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	if s.writeErr != nil {
		s.mu.Unlock()
		return 0, s.writeErr
	}
	s.writes++
	n, _ := s.body.Write(p)
	s.mu.Unlock()

	if s.onWrite != nil {
		s.onWrite(s)
	}
	return n, nil
}

func (s *recordingSink) Flush() error { return nil }

func (s *recordingSink) Done() <-chan struct{} { return s.done }

func (s *recordingSink) Abort() {
	s.mu.Lock()
	s.aborted = true
	s.mu.Unlock()
}

// disconnect simulates the client going away.
func (s *recordingSink) disconnect() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *recordingSink) snapshot() (status int, body string, writes int, aborted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusCode, s.body.String(), s.writes, s.aborted
}

var errBrokenPipe = errors.New("write: broken pipe")
