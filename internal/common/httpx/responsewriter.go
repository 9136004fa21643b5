package httpx

import "net/http"

// ResponseWriter wraps a writer to remember the reply status and body size.
// Middleware uses it to log outcomes and to avoid writing a second reply.
type ResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

// NewResponseWriter wraps w once; wrapping an existing ResponseWriter returns it.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w}
}

func (rw *ResponseWriter) WriteHeader(code int) {
	if rw.status != 0 {
		return
	}
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	rw.WriteHeader(http.StatusOK)
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Written reports whether a status line has gone out.
func (rw *ResponseWriter) Written() bool { return rw.status != 0 }

// Status returns the status written, or 200 if none was.
func (rw *ResponseWriter) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// Size is the number of body bytes written.
func (rw *ResponseWriter) Size() int { return rw.size }
