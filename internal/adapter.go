package internal

import (
	"net/http"
	"strconv"
)

// Adapter bridges net/http and the dispatch engine: it builds a
// pipeline Request from the transport request, runs Handle, and writes
// the resulting Response. It is the WSGI-equivalent boundary; nothing
// above it knows about http.ResponseWriter.
//
// Exit requests and propagated failures panic out of the adapter so the
// transport layer sees the unhandled failure instead of a fabricated
// response.
func Adapter(e *Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, hr *http.Request) {
		r := fromHTTP(hr)

		resp, err := e.Handle(r)
		if err != nil {
			panic(err)
		}
		defer func() { _ = resp.Close() }()

		header := w.Header()
		for key, values := range resp.Header {
			header[key] = values
		}
		for _, c := range resp.Cookies() {
			http.SetCookie(w, c)
		}
		content := resp.Content()
		if header.Get("Content-Length") == "" {
			header.Set("Content-Length", strconv.Itoa(len(content)))
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(content)
	})
}

// fromHTTP translates the transport request into the pipeline's model.
func fromHTTP(hr *http.Request) *Request {
	r := NewRequest(hr.Method, hr.URL.Path)
	r.Host = hr.Host
	r.Secure = hr.TLS != nil
	r.Header = hr.Header
	for _, c := range hr.Cookies() {
		r.Cookies[c.Name] = c.Value
	}
	r.SetBody(hr.Body)
	r.ctx = hr.Context()
	return r
}
