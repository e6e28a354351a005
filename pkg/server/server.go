package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/graph-guard/intscan/pkg/config"
	"github.com/graph-guard/intscan/pkg/intscan"
	"github.com/graph-guard/intscan/pkg/jsonscan"
	"github.com/graph-guard/intscan/pkg/profile"
	"github.com/graph-guard/intscan/pkg/statistics"
	plog "github.com/phuslu/log"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
)

const (
	PathParse    = "/parse"
	PathExtract  = "/extract"
	PathProfiles = "/profiles"
	PathStats    = "/stats"

	HeaderRequestID = "X-Request-Id"
)

// Server is the HTTP parsing service.
type Server struct {
	server    *fasthttp.Server
	host      string
	log       plog.Logger
	registry  *profile.Registry
	stats     *statistics.Set
	jwtSecret []byte
	etag      string
}

// New creates a new server serving the enabled profiles of conf.
func New(conf *config.Config, log plog.Logger) (*Server, error) {
	r, err := profile.NewRegistry(conf.ProfilesEnabled...)
	if err != nil {
		return nil, fmt.Errorf("creating registry: %w", err)
	}

	ids := make([]string, 0, r.Len())
	r.Visit(func(p *profile.Profile) bool {
		ids = append(ids, p.ID)
		return true
	})

	lHTTPServer := log
	lHTTPServer.Context = plog.NewContext(nil).
		Str("server-module", "fasthttp").Value()

	s := &Server{
		host:     conf.Host,
		log:      log,
		registry: r,
		stats:    statistics.NewSet(ids...),
		etag:     `"` + strconv.FormatUint(r.Fingerprint(), 16) + `"`,
	}
	if conf.API.JWTSecret != "" {
		s.jwtSecret = []byte(conf.API.JWTSecret)
	}
	s.server = &fasthttp.Server{
		Name:               "intscan",
		Handler:            s.handle,
		ReadTimeout:        conf.ReadTimeout,
		WriteTimeout:       conf.WriteTimeout,
		MaxRequestBodySize: conf.MaxRequestBodySize,
		Logger:             &logWriter{Log: lHTTPServer},
	}
	return s, nil
}

// Registry returns the profiles served.
func (s *Server) Registry() *profile.Registry { return s.registry }

// Statistics returns the per-profile counters.
func (s *Server) Statistics() *statistics.Set { return s.stats }

// Serve serves on ln, or listens on the configured host if ln is nil.
// Blocks until the server is shut down.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info().
		Str("host", s.host).
		Int("profiles", s.registry.Len()).
		Str("max-request-body-size",
			humanize.Bytes(uint64(s.server.MaxRequestBodySize))).
		Msg("listening")
	if ln == nil {
		return s.server.ListenAndServe(s.host)
	}
	return s.server.Serve(ln)
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown() error {
	return s.server.Shutdown()
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	reqID := string(ctx.Request.Header.Peek(HeaderRequestID))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx.Response.Header.Set(HeaderRequestID, reqID)

	s.log.Debug().
		Str("request", reqID).
		Bytes("method", ctx.Method()).
		Bytes("path", ctx.Path()).
		Msg("handling request")

	if s.jwtSecret != nil {
		if err := s.authorize(ctx); err != nil {
			s.log.Debug().
				Str("request", reqID).
				Err(err).
				Msg("unauthorized")
			writeError(ctx, fasthttp.StatusUnauthorized, "unauthorized")
			return
		}
	}

	var method string
	var handler func(*fasthttp.RequestCtx, string)
	switch string(ctx.Path()) {
	case PathParse:
		method, handler = fasthttp.MethodPost, s.handleParse
	case PathExtract:
		method, handler = fasthttp.MethodPost, s.handleExtract
	case PathProfiles:
		method, handler = fasthttp.MethodGet, s.handleProfiles
	case PathStats:
		method, handler = fasthttp.MethodGet, s.handleStats
	default:
		s.log.Debug().Str("request", reqID).Msg("not existing endpoint")
		writeError(ctx, fasthttp.StatusNotFound,
			fasthttp.StatusMessage(fasthttp.StatusNotFound))
		return
	}
	if string(ctx.Method()) != method {
		writeError(ctx, fasthttp.StatusMethodNotAllowed,
			fasthttp.StatusMessage(fasthttp.StatusMethodNotAllowed))
		return
	}
	handler(ctx, reqID)
}

func (s *Server) authorize(ctx *fasthttp.RequestCtx) error {
	const prefix = "Bearer "
	h := ctx.Request.Header.Peek("Authorization")
	if !bytes.HasPrefix(h, []byte(prefix)) {
		return fmt.Errorf("missing bearer token")
	}
	t, err := jwt.Parse(
		string(h[len(prefix):]),
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf(
					"unexpected signing method: %v", t.Header["alg"],
				)
			}
			return s.jwtSecret, nil
		},
	)
	if err != nil {
		return fmt.Errorf("parsing token: %w", err)
	}
	if !t.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

type outcome struct {
	Status  string `json:"status"`
	End     int    `json:"end"`
	Value   string `json:"value,omitempty"`
	Grouped string `json:"grouped,omitempty"`
	Error   string `json:"error,omitempty"`
}

func makeOutcome(o profile.Outcome) outcome {
	x := outcome{
		Status: o.Result.Status.String(),
		End:    o.Result.End,
	}
	if o.Result.Status == intscan.OK {
		x.Value = o.Value.String()
		x.Grouped = o.Value.Grouped()
	} else {
		x.Error = o.Result.Err().Error()
	}
	return x
}

type parseResult struct {
	Input string `json:"input"`
	outcome
}

type parseResponse struct {
	Profile string        `json:"profile"`
	Results []parseResult `json:"results"`
}

func (s *Server) handleParse(ctx *fasthttp.RequestCtx, reqID string) {
	body := ctx.PostBody()
	if !gjson.ValidBytes(body) {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid JSON")
		return
	}
	r := gjson.GetManyBytes(body, "profile", "input", "inputs")

	p := s.getProfile(ctx, r[0])
	if p == nil {
		return
	}

	var inputs []string
	switch {
	case r[1].Exists() && r[2].Exists():
		writeError(ctx, fasthttp.StatusBadRequest,
			"input and inputs are mutually exclusive")
		return
	case r[1].Type == gjson.String:
		inputs = []string{r[1].Str}
	case r[2].IsArray():
		ok := true
		r[2].ForEach(func(_, v gjson.Result) bool {
			if v.Type != gjson.String {
				ok = false
				return false
			}
			inputs = append(inputs, v.Str)
			return true
		})
		if !ok {
			writeError(ctx, fasthttp.StatusBadRequest,
				"inputs must be an array of strings")
			return
		}
	default:
		writeError(ctx, fasthttp.StatusBadRequest,
			"missing string input or array of string inputs")
		return
	}

	st := s.stats.Get(p.ID)
	resp := parseResponse{
		Profile: p.ID,
		Results: make([]parseResult, len(inputs)),
	}
	for i, in := range inputs {
		start := time.Now()
		o := p.Parse([]byte(in))
		st.Update(len(in), o.Result, time.Since(start))
		resp.Results[i] = parseResult{Input: in, outcome: makeOutcome(o)}
	}

	s.log.Debug().
		Str("request", reqID).
		Str("profile", p.ID).
		Int("inputs", len(inputs)).
		Msg("parsed")
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

type extractField struct {
	Path    string   `json:"path"`
	Found   bool     `json:"found"`
	Raw     string   `json:"raw,omitempty"`
	Error   string   `json:"error,omitempty"`
	Outcome *outcome `json:"outcome,omitempty"`
}

type extractResponse struct {
	Profile string         `json:"profile"`
	Fields  []extractField `json:"fields"`
}

func (s *Server) handleExtract(ctx *fasthttp.RequestCtx, reqID string) {
	args := ctx.QueryArgs()
	p := s.getProfile(ctx, gjson.Result{
		Type: gjson.String,
		Str:  string(args.Peek("profile")),
	})
	if p == nil {
		return
	}

	pathArgs := args.PeekMulti("path")
	if len(pathArgs) < 1 {
		writeError(ctx, fasthttp.StatusBadRequest, "missing path")
		return
	}
	paths := make([]string, len(pathArgs))
	for i := range pathArgs {
		paths[i] = string(pathArgs[i])
	}

	start := time.Now()
	fields, err := jsonscan.Extract(ctx.PostBody(), p, paths...)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	elapsed := time.Since(start)

	st := s.stats.Get(p.ID)
	resp := extractResponse{
		Profile: p.ID,
		Fields:  make([]extractField, len(fields)),
	}
	for i, f := range fields {
		x := extractField{Path: f.Path, Found: f.Found, Raw: f.Raw}
		switch {
		case !f.Found:
		case f.Err != nil:
			x.Error = f.Err.Error()
		default:
			st.Update(len(f.Raw), f.Outcome.Result, elapsed/time.Duration(len(fields)))
			o := makeOutcome(f.Outcome)
			x.Outcome = &o
		}
		resp.Fields[i] = x
	}

	s.log.Debug().
		Str("request", reqID).
		Str("profile", p.ID).
		Int("paths", len(paths)).
		Msg("extracted")
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

type profileDescription struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Type     string `json:"type"`
	Strategy string `json:"strategy"`
	Ignore   string `json:"ignore"`
}

func (s *Server) handleProfiles(ctx *fasthttp.RequestCtx, _ string) {
	ctx.Response.Header.Set(fasthttp.HeaderETag, s.etag)
	if matchETag(ctx.Request.Header.Peek(fasthttp.HeaderIfNoneMatch), s.etag) {
		ctx.SetStatusCode(fasthttp.StatusNotModified)
		return
	}
	l := make([]profileDescription, 0, s.registry.Len())
	s.registry.Visit(func(p *profile.Profile) bool {
		l = append(l, profileDescription{
			ID:       p.ID,
			Name:     p.Name,
			Type:     p.Kind.String(),
			Strategy: p.Strategy.String(),
			Ignore:   p.Ignored,
		})
		return true
	})
	writeJSON(ctx, fasthttp.StatusOK, struct {
		Profiles []profileDescription `json:"profiles"`
	}{Profiles: l})
}

// matchETag reports whether the If-None-Match header value h
// matches etag. h is either "*" or a comma-separated list of
// entity tags, weak tags compare equal to their strong counterpart.
func matchETag(h []byte, etag string) bool {
	for _, t := range bytes.Split(h, []byte(",")) {
		t = bytes.TrimSpace(t)
		if string(t) == "*" {
			return true
		}
		t = bytes.TrimPrefix(t, []byte("W/"))
		if string(t) == etag {
			return true
		}
	}
	return false
}

func (s *Server) handleStats(ctx *fasthttp.RequestCtx, _ string) {
	writeJSON(ctx, fasthttp.StatusOK, struct {
		Profiles map[string]statistics.Snapshot `json:"profiles"`
	}{Profiles: s.stats.Snapshots()})
}

// getProfile writes an error response and returns nil
// if id doesn't refer to a known profile.
func (s *Server) getProfile(
	ctx *fasthttp.RequestCtx, id gjson.Result,
) *profile.Profile {
	if id.Type != gjson.String || id.Str == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "missing profile")
		return nil
	}
	p, ok := s.registry.Get(id.Str)
	if !ok {
		writeError(ctx, fasthttp.StatusNotFound, "unknown profile")
		return nil
	}
	return p
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("encoding response: %w", err))
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}

type logWriter struct {
	Log plog.Logger
}

func (l *logWriter) Printf(format string, args ...any) {
	l.Log.Error().Msgf(format, args...)
}
