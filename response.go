package goSession

import (
	"bytes"
	"net/http"
	"sync"
)

// commitWriter holds back the status line and body until finalize runs the commit
// hook. Headers go straight to the wrapped writer's map since nothing is sent before
// finalize. After finalize every call passes through.
type commitWriter struct {
	w          http.ResponseWriter
	onFinalize func()

	once        sync.Once
	mu          sync.Mutex
	finalized   bool
	wroteHeader bool
	status      int
	buf         bytes.Buffer
}

func newCommitWriter(w http.ResponseWriter, onFinalize func()) *commitWriter {
	return &commitWriter{w: w, onFinalize: onFinalize}
}

func (cw *commitWriter) Header() http.Header {
	return cw.w.Header()
}

func (cw *commitWriter) WriteHeader(code int) {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.finalized {
		cw.w.WriteHeader(code)
		return
	}
	// Informational responses go out at once and do not fix the final status.
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		cw.w.WriteHeader(code)
		return
	}
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	cw.status = code
}

func (cw *commitWriter) Write(p []byte) (int, error) {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.finalized {
		return cw.w.Write(p)
	}
	if !cw.wroteHeader {
		cw.wroteHeader = true
		cw.status = http.StatusOK
	}
	return cw.buf.Write(p)
}

// Flush finalizes the response before flushing, so streamed responses commit the
// session before the first byte leaves.
func (cw *commitWriter) Flush() {
	cw.finalize()
	if f, ok := cw.w.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (cw *commitWriter) Unwrap() http.ResponseWriter {
	return cw.w
}

// finalize runs the hook and then releases the buffered response. It is idempotent.
func (cw *commitWriter) finalize() {
	cw.once.Do(func() {
		if cw.onFinalize != nil {
			cw.onFinalize()
		}

		cw.mu.Lock()
		defer cw.mu.Unlock()

		cw.finalized = true
		if cw.wroteHeader {
			cw.w.WriteHeader(cw.status)
		}
		if cw.buf.Len() > 0 {
			_, _ = cw.w.Write(cw.buf.Bytes())
		}
		cw.buf = bytes.Buffer{}
	})
}
