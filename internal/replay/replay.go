// Package replay runs the body consumers against a captured HTTP/1.1 request.
//
// The captured body is re-cut into chunks of a chosen size so chunk boundary
// behaviour can be reproduced outside of a live connection.
package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/guided-traffic/httpmessage/internal/config"
	"github.com/guided-traffic/httpmessage/internal/server/response"
	"github.com/guided-traffic/httpmessage/pkg/httpmessage"
	"github.com/guided-traffic/httpmessage/pkg/httpmessage/httpmessagetest"
	"github.com/sirupsen/logrus"
)

// Mode selects the consumer run against the captured request
type Mode string

// Supported modes
const (
	ModeBody      Mode = "body"
	ModeForm      Mode = "form"
	ModeLines     Mode = "lines"
	ModeCookies   Mode = "cookies"
	ModeNegotiate Mode = "negotiate"
)

// Modes lists every supported mode
var Modes = []Mode{ModeBody, ModeForm, ModeLines, ModeCookies, ModeNegotiate}

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == strings.ToLower(s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Options control a replay
type Options struct {
	Mode   Mode
	Limits config.LimitsConfig
	// Stall makes the source report not-ready before every chunk
	Stall bool
	// WireChunks keeps the chunk boundaries of a chunked capture instead
	// of re-cutting the body with Limits.ChunkSize
	WireChunks bool
	Logger     *logrus.Entry
}

// Cookie is a decoded request cookie
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Negotiation describes how the request headers were interpreted
type Negotiation struct {
	ContentType string            `json:"content_type"`
	Essence     string            `json:"essence,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Charset     string            `json:"charset"`
	Chunked     bool              `json:"chunked"`
}

// Failure is the error a consumer ended with
type Failure struct {
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Result is the outcome of a replay
type Result struct {
	Mode        Mode                   `json:"mode"`
	Method      string                 `json:"method"`
	Target      string                 `json:"target"`
	Chunks      int                    `json:"chunks"`
	Polls       int                    `json:"polls"`
	Body        *string                `json:"body,omitempty"`
	Form        map[string]interface{} `json:"form,omitempty"`
	Lines       []string               `json:"lines,omitempty"`
	Cookies     []Cookie               `json:"cookies,omitempty"`
	Negotiation *Negotiation           `json:"negotiation,omitempty"`
	Error       *Failure               `json:"error,omitempty"`
}

// Run reads one request from r and runs the consumer selected by opts.
// Consumer failures are reported in Result.Error; the returned error is
// only set when the capture can't be read.
func Run(r io.Reader, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.WithField("component", "replay")
	}

	br := bufio.NewReader(r)
	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read captured request: %w", err)
	}
	defer req.Body.Close()

	chunks, err := captureChunks(br, req, opts, logger)
	if err != nil {
		return nil, err
	}

	src := httpmessagetest.NewSource(chunks...)
	if opts.Stall {
		src.Stall()
	}

	header := req.Header.Clone()
	if len(req.TransferEncoding) > 0 && header.Get("Transfer-Encoding") == "" {
		header.Set("Transfer-Encoding", strings.Join(req.TransferEncoding, ", "))
	}
	msg := httpmessage.NewRequest(req.Method, req.URL, header, src)

	res := &Result{
		Mode:   opts.Mode,
		Method: req.Method,
		Target: req.RequestURI,
		Chunks: len(chunks),
	}

	logger.WithFields(logrus.Fields{
		"mode":   opts.Mode,
		"method": req.Method,
		"target": req.RequestURI,
		"chunks": len(chunks),
		"stall":  opts.Stall,
	}).Debug("Replaying captured request")

	switch opts.Mode {
	case ModeBody:
		err = runBody(msg, opts, logger, res)
	case ModeForm:
		err = runForm(msg, opts, logger, res)
	case ModeLines:
		err = runLines(msg, opts, logger, res)
	case ModeCookies:
		err = runCookies(msg, res)
	case ModeNegotiate:
		err = runNegotiate(msg, res)
	default:
		return nil, fmt.Errorf("unknown mode %q", opts.Mode)
	}

	if err != nil {
		status, code := response.Classify(err)
		res.Error = &Failure{Code: code, Status: status, Message: err.Error()}
	}

	return res, nil
}

// captureChunks returns the body of req cut into the chunks the consumer will see
func captureChunks(br *bufio.Reader, req *http.Request, opts Options, logger *logrus.Entry) ([][]byte, error) {
	if opts.WireChunks {
		if isChunked(req) {
			// req.Body has not been read yet, so br is positioned at the first chunk
			chunks, err := readWireChunks(br)
			if err != nil {
				return nil, fmt.Errorf("failed to read captured body: %w", err)
			}
			return chunks, nil
		}
		logger.Warn("Capture is not chunked, re-cutting body with the configured chunk size")
	}

	payload, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read captured body: %w", err)
	}
	return httpmessagetest.Split(payload, opts.Limits.ChunkSize), nil
}

func isChunked(req *http.Request) bool {
	for _, te := range req.TransferEncoding {
		if strings.EqualFold(te, "chunked") {
			return true
		}
	}
	return false
}

func runBody(msg httpmessage.Message, opts Options, logger *logrus.Entry, res *Result) error {
	b := httpmessage.Body(msg).Limit(opts.Limits.Body).Logger(logger)
	for {
		res.Polls++
		data, err := b.Poll()
		if errors.Is(err, httpmessage.ErrNotReady) {
			continue
		}
		if err != nil {
			return err
		}

		s := string(data)
		res.Body = &s
		return nil
	}
}

func runForm(msg httpmessage.Message, opts Options, logger *logrus.Entry, res *Result) error {
	f := httpmessage.Form[map[string]interface{}](msg).Limit(opts.Limits.Body).Logger(logger)
	for {
		res.Polls++
		fields, err := f.Poll()
		if errors.Is(err, httpmessage.ErrNotReady) {
			continue
		}
		if err != nil {
			return err
		}

		if fields == nil {
			fields = map[string]interface{}{}
		}
		res.Form = fields
		return nil
	}
}

func runLines(msg httpmessage.Message, opts Options, logger *logrus.Entry, res *Result) error {
	lines := httpmessage.Lines(msg).Limit(opts.Limits.Line).Logger(logger)
	res.Lines = []string{}
	for {
		res.Polls++
		line, err := lines.Poll()
		switch {
		case errors.Is(err, httpmessage.ErrNotReady):
			continue
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}
		res.Lines = append(res.Lines, line)
	}
}

func runCookies(msg httpmessage.Message, res *Result) error {
	cookies, err := httpmessage.Cookies(msg)
	if err != nil {
		return err
	}

	res.Cookies = make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		res.Cookies = append(res.Cookies, Cookie{Name: c.Name, Value: c.Value})
	}
	return nil
}

func runNegotiate(msg httpmessage.Message, res *Result) error {
	n := &Negotiation{ContentType: httpmessage.ContentType(msg)}

	mt, err := httpmessage.MimeType(msg)
	if err != nil {
		return err
	}
	if mt != nil {
		n.Essence = mt.Essence()
		n.Params = mt.Params
	}

	cs, err := httpmessage.Encoding(msg)
	if err != nil {
		return err
	}
	n.Charset = cs.Name()

	if n.Chunked, err = httpmessage.Chunked(msg); err != nil {
		return err
	}

	res.Negotiation = n
	return nil
}

// Write prints res as indented JSON
func Write(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to write replay result: %w", err)
	}
	return nil
}
