package body

import (
	"net/http"
	"time"

	"github.com/guided-traffic/httpmessage/internal/config"
	"github.com/guided-traffic/httpmessage/internal/monitoring"
	"github.com/guided-traffic/httpmessage/internal/server/middleware"
	"github.com/guided-traffic/httpmessage/internal/server/response"
	"github.com/guided-traffic/httpmessage/pkg/httpmessage"
	"github.com/sirupsen/logrus"
)

// EchoHeader is set on every successful echo response
const (
	EchoHeader      = "X-Head"
	EchoHeaderValue = "dummy value!"
)

// Handler serves the body consumption endpoints
type Handler struct {
	logger      *logrus.Entry
	limits      config.LimitsConfig
	errorWriter *response.ErrorWriter
}

// NewHandler creates a new body handler
func NewHandler(logger *logrus.Entry, limits config.LimitsConfig) *Handler {
	return &Handler{
		logger:      logger,
		limits:      limits,
		errorWriter: response.NewErrorWriter(logger),
	}
}

// message adapts r with the configured chunk size
func (h *Handler) message(r *http.Request) *httpmessage.Request {
	return httpmessage.FromHTTPRequest(r, h.limits.ChunkSize)
}

// requestLogger returns a logger carrying the request id
func (h *Handler) requestLogger(r *http.Request) *logrus.Entry {
	return h.logger.WithField("request_id", middleware.RequestID(r.Context()))
}

// fail writes the error document and records the failed consumption
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, kind string, start time.Time, err error) {
	code := h.errorWriter.WriteError(w, r, err)
	monitoring.RecordConsumption(kind, code, 0, time.Since(start))
}

// Echo collects the body and writes it back unchanged
func (h *Handler) Echo(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	msg := h.message(r)

	data, err := httpmessage.Body(msg).
		Limit(h.limits.Body).
		Logger(h.requestLogger(r)).
		Bytes(r.Context())
	if err != nil {
		h.fail(w, r, "body", start, err)
		return
	}
	monitoring.RecordConsumption("body", "ok", int64(len(data)), time.Since(start))

	h.requestLogger(r).WithField("size", len(data)).Debug("Echoing request body")

	if ct := msg.Header().Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set(EchoHeader, EchoHeaderValue)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		h.logger.WithError(err).Error("Failed to write echo response")
	}
}

// FormResponse is returned by the form endpoint
type FormResponse struct {
	Fields map[string]interface{} `json:"fields"`
}

// Form decodes an urlencoded body and returns its fields as JSON.
// Repeated keys are returned as arrays.
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	msg := h.message(r)

	form := httpmessage.Form[map[string]interface{}](msg).
		Limit(h.limits.Body).
		Logger(h.requestLogger(r))
	fields, err := form.Decode(r.Context())
	if err != nil {
		h.fail(w, r, "form", start, err)
		return
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	monitoring.RecordConsumption("form", "ok", int64(form.Size()), time.Since(start))

	response.WriteJSON(w, h.logger, http.StatusOK, FormResponse{Fields: fields})
}

// LinesResponse is returned by the lines endpoint
type LinesResponse struct {
	Charset string   `json:"charset"`
	Count   int      `json:"count"`
	Lines   []string `json:"lines"`
}

// Lines splits the body into lines and returns them as JSON.
// Lines keep their trailing newline.
func (h *Handler) Lines(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	msg := h.message(r)

	decoder := httpmessage.Lines(msg).
		Limit(h.limits.Line).
		Logger(h.requestLogger(r))

	resp := LinesResponse{Lines: []string{}}
	var size int64
	for line, err := range decoder.All(r.Context()) {
		if err != nil {
			monitoring.RecordLines(len(resp.Lines))
			h.fail(w, r, "lines", start, err)
			return
		}
		resp.Lines = append(resp.Lines, line)
		size += int64(len(line))
	}

	resp.Charset = decoder.Charset().Name()
	resp.Count = len(resp.Lines)
	monitoring.RecordLines(resp.Count)
	monitoring.RecordConsumption("lines", "ok", size, time.Since(start))

	response.WriteJSON(w, h.logger, http.StatusOK, resp)
}

// CookieEntry is one cookie in a cookies response
type CookieEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CookiesResponse is returned by the cookies endpoint
type CookiesResponse struct {
	Cookies []CookieEntry `json:"cookies"`
}

// Cookies returns the decoded request cookies. With ?name= only that
// cookie is returned, or 404 when it is not set.
func (h *Handler) Cookies(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	msg := h.message(r)

	cookies, err := httpmessage.Cookies(msg)
	if err != nil {
		h.fail(w, r, "cookies", start, err)
		return
	}

	resp := CookiesResponse{Cookies: []CookieEntry{}}
	if name := r.URL.Query().Get("name"); name != "" {
		c := httpmessage.Cookie(msg, name)
		if c == nil {
			monitoring.RecordConsumption("cookies", "NoSuchCookie", 0, time.Since(start))
			h.errorWriter.WriteGenericError(w, r, http.StatusNotFound, "NoSuchCookie", "cookie "+name+" is not set")
			return
		}
		resp.Cookies = append(resp.Cookies, CookieEntry{Name: c.Name, Value: c.Value})
	} else {
		for _, c := range cookies {
			resp.Cookies = append(resp.Cookies, CookieEntry{Name: c.Name, Value: c.Value})
		}
	}
	monitoring.RecordConsumption("cookies", "ok", 0, time.Since(start))

	response.WriteJSON(w, h.logger, http.StatusOK, resp)
}

// NegotiateResponse describes the content negotiation headers of a request
type NegotiateResponse struct {
	ContentType string            `json:"content_type"`
	Essence     string            `json:"essence,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Charset     string            `json:"charset"`
	Chunked     bool              `json:"chunked"`
}

// Negotiate reports how the request headers are interpreted. The body is
// left unread.
func (h *Handler) Negotiate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	msg := h.message(r)

	resp := NegotiateResponse{ContentType: httpmessage.ContentType(msg)}

	mt, err := httpmessage.MimeType(msg)
	if err != nil {
		h.fail(w, r, "negotiate", start, err)
		return
	}
	if mt != nil {
		resp.Essence = mt.Essence()
		resp.Params = mt.Params
	}

	cs, err := httpmessage.Encoding(msg)
	if err != nil {
		h.fail(w, r, "negotiate", start, err)
		return
	}
	resp.Charset = cs.Name()

	if resp.Chunked, err = httpmessage.Chunked(msg); err != nil {
		h.fail(w, r, "negotiate", start, err)
		return
	}
	monitoring.RecordConsumption("negotiate", "ok", 0, time.Since(start))

	response.WriteJSON(w, h.logger, http.StatusOK, resp)
}
