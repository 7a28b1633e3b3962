package dispatch

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"

	"cexd/internal/compiler"
	"cexd/internal/request"
)

// delegate forwards the request to the instance serving remote. Form bodies
// are reshaped into JSON; other bodies are forwarded as received.
func (h *Handler) delegate(w http.ResponseWriter, r *http.Request, body request.Body, remote compiler.Remote) {
	target, err := url.Parse(remote.Target)
	if err != nil || target.Host == "" {
		h.log.Error("proxy error", "target", remote.Target, "err", err)
		writeJSON(w, http.StatusBadGateway, compiler.ErrorResult(fmt.Sprintf("invalid remote target %q", remote.Target)))
		return
	}

	payload, contentType := body.Raw(), r.Header.Get("Content-Type")
	if form, ok := body.(*request.FormBody); ok {
		reshaped, err := form.AsJSON()
		if err != nil {
			h.log.Error("proxy error", "target", remote.Target, "err", err)
			writeJSON(w, http.StatusBadGateway, compiler.ErrorResult("Proxy error"))
			return
		}
		payload, contentType = reshaped, "application/json"
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = singleJoin(target.Path, remote.Path)
			pr.Out.URL.RawPath = ""
			pr.Out.URL.RawQuery = r.URL.RawQuery
			pr.Out.Body = io.NopCloser(bytes.NewReader(payload))
			pr.Out.ContentLength = int64(len(payload))
			if contentType != "" {
				pr.Out.Header.Set("Content-Type", contentType)
			}
		},
		Transport: h.transport,
		ErrorHandler: func(w http.ResponseWriter, _ *http.Request, err error) {
			h.log.Error("proxy error", "target", remote.Target, "err", err)
			writeJSON(w, http.StatusBadGateway, compiler.ErrorResult("Proxy error: "+err.Error()))
		},
	}
	proxy.ServeHTTP(w, r)
}

func singleJoin(base, path string) string {
	switch {
	case base == "" || base == "/":
		return path
	case base[len(base)-1] == '/' && len(path) > 0 && path[0] == '/':
		return base + path[1:]
	case base[len(base)-1] != '/' && (len(path) == 0 || path[0] != '/'):
		return base + "/" + path
	}
	return base + path
}
