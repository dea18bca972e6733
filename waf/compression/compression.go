package compression

import (
	"bytes"
	"compress/gzip"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
)

type Config struct {
	Enabled      bool
	Level        int
	MinSize      int
	ContentTypes []string
}

// bufferedWriter holds the response so the encoding decision can look at
// its size and content type
type bufferedWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (bw *bufferedWriter) WriteHeader(code int) {
	if bw.status == 0 {
		bw.status = code
	}
}

func (bw *bufferedWriter) Write(b []byte) (int, error) {
	if bw.status == 0 {
		bw.status = http.StatusOK
	}
	return bw.buf.Write(b)
}

type Handler struct {
	config Config
}

func NewHandler(config Config) *Handler {
	if config.Level == 0 {
		config.Level = 6
	}
	if config.MinSize == 0 {
		config.MinSize = 1024
	}
	if len(config.ContentTypes) == 0 {
		config.ContentTypes = []string{
			"text/html",
			"text/css",
			"text/javascript",
			"application/json",
			"application/javascript",
		}
	}

	return &Handler{config: config}
}

// Negotiate picks "br", "gzip" or "" from an Accept-Encoding header
func Negotiate(acceptEncoding string) string {
	var gz bool
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				continue
			}
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "br":
			return "br"
		case "gzip":
			gz = true
		}
	}
	if gz {
		return "gzip"
	}
	return ""
}

func (h *Handler) compressible(contentType string) bool {
	for _, ct := range h.config.ContentTypes {
		if strings.HasPrefix(contentType, ct) {
			return true
		}
	}
	return false
}

func (h *Handler) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		encoding := Negotiate(r.Header.Get("Accept-Encoding"))
		if encoding == "" {
			next.ServeHTTP(w, r)
			return
		}

		bw := &bufferedWriter{ResponseWriter: w}
		next.ServeHTTP(bw, r)
		if bw.status == 0 {
			bw.status = http.StatusOK
		}

		w.Header().Add("Vary", "Accept-Encoding")
		body := bw.buf.Bytes()
		if len(body) < h.config.MinSize || !h.compressible(w.Header().Get("Content-Type")) ||
			bw.status == http.StatusNoContent || bw.status == http.StatusNotModified {
			w.WriteHeader(bw.status)
			_, _ = w.Write(body)
			return
		}

		var writer io.WriteCloser
		if encoding == "br" {
			writer = brotli.NewWriterLevel(w, h.config.Level)
		} else {
			writer, _ = gzip.NewWriterLevel(w, h.config.Level)
		}

		w.Header().Set("Content-Encoding", encoding)
		w.Header().Del("Content-Length")
		w.WriteHeader(bw.status)
		if _, err := writer.Write(body); err != nil {
			log.Printf("[HTTP] compression write failed: %v", err)
		}
		if err := writer.Close(); err != nil {
			log.Printf("[HTTP] compression close failed: %v", err)
		}
	})
}
