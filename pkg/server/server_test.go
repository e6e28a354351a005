package server_test

import (
	"encoding/json"
	"io"
	"net"
	"regexp"
	"testing"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/graph-guard/intscan/pkg/config"
	"github.com/graph-guard/intscan/pkg/server"
	"github.com/graph-guard/intscan/pkg/testsetup"
	plog "github.com/phuslu/log"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func TestSetups(t *testing.T) {
	for _, name := range []string{testsetup.SetupNameBasic} {
		setup, ok := testsetup.ByName(name)
		require.True(t, ok)
		t.Run(setup.Name, func(t *testing.T) {
			c := launch(t, setup.Config)
			for _, td := range setup.Tests {
				t.Run(td.Name, func(t *testing.T) {
					runTest(t, c, td)
				})
			}
		})
	}
}

func runTest(t *testing.T, c *fasthttp.Client, td testsetup.Test) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	in := td.Client.Input
	req.Header.SetMethod(in.Method)
	req.SetRequestURI("http://test" + in.Endpoint)
	for k, v := range in.Headers {
		req.Header.Set(k, v)
	}
	if in.BodyJSON != nil {
		b, err := json.Marshal(in.BodyJSON)
		require.NoError(t, err)
		req.SetBody(b)
	} else if in.Body != "" {
		req.SetBodyString(in.Body)
	}

	require.NoError(t, c.Do(req, resp))

	expect := td.Client.ExpectResponse
	require.Equal(t, expect.Status, resp.StatusCode())
	for k, v := range expect.Headers {
		require.Regexp(t,
			regexp.MustCompile(v), string(resp.Header.Peek(k)),
			"header %q", k,
		)
	}
	if expect.BodyJSON != nil {
		b, err := json.Marshal(expect.BodyJSON)
		require.NoError(t, err)
		require.JSONEq(t, string(b), string(resp.Body()))
	} else {
		require.Equal(t, expect.Body, string(resp.Body()))
	}
}

func launch(t *testing.T, conf *config.Config) *fasthttp.Client {
	s, err := server.New(conf, plog.Logger{
		Level:  plog.DebugLevel,
		Writer: &plog.IOWriter{Writer: io.Discard},
	})
	require.NoError(t, err)
	return serve(t, s)
}

func serve(t *testing.T, s *server.Server) *fasthttp.Client {
	ln := fasthttputil.NewInmemoryListener()
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := s.Serve(ln); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}()
	t.Cleanup(func() {
		require.NoError(t, s.Shutdown())
		<-stopped
	})
	return &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
	}
}

func TestStatistics(t *testing.T) {
	s, err := server.New(testsetup.Basic().Config, plog.Logger{
		Writer: &plog.IOWriter{Writer: io.Discard},
	})
	require.NoError(t, err)
	c := serve(t, s)

	status, body := post(t, c,
		"http://test/parse", `{"profile":"byte","inputs":["1","256","x"]}`,
	)
	require.Equal(t, fasthttp.StatusOK, status, string(body))

	status, body, err = c.Get(nil, "http://test/stats")
	require.NoError(t, err)
	require.Equal(t, fasthttp.StatusOK, status)

	b := gjson.GetBytes(body, "profiles.byte")
	require.Equal(t, int64(3), b.Get("parsed").Int())
	require.Equal(t, int64(1), b.Get("ok").Int())
	require.Equal(t, int64(1), b.Get("outOfRange").Int())
	require.Equal(t, int64(1), b.Get("invalidArgument").Int())
	require.Equal(t, int64(5), b.Get("scannedBytes").Int())
	require.Equal(t, int64(4), b.Get("consumedBytes").Int())
	require.Equal(t, int64(0), gjson.GetBytes(body, "profiles.port.parsed").Int())

	st := s.Statistics().Get("byte")
	require.Equal(t, int64(3), st.GetParsed())
}

func TestProfilesNotModified(t *testing.T) {
	s, err := server.New(testsetup.Basic().Config, plog.Logger{
		Writer: &plog.IOWriter{Writer: io.Discard},
	})
	require.NoError(t, err)
	c := serve(t, s)

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://test/profiles")
	require.NoError(t, c.Do(req, resp))
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	etag := string(resp.Header.Peek(fasthttp.HeaderETag))
	require.NotEmpty(t, etag)

	req.Header.Set(fasthttp.HeaderIfNoneMatch, etag)
	require.NoError(t, c.Do(req, resp))
	require.Equal(t, fasthttp.StatusNotModified, resp.StatusCode())
	require.Equal(t, etag, string(resp.Header.Peek(fasthttp.HeaderETag)))

	for _, h := range []string{
		"*",
		`"stale", ` + etag,
		etag + `,"stale"`,
		`W/` + etag,
	} {
		req.Header.Set(fasthttp.HeaderIfNoneMatch, h)
		require.NoError(t, c.Do(req, resp))
		require.Equal(t, fasthttp.StatusNotModified, resp.StatusCode(), h)
	}

	for _, h := range []string{`"stale"`, `"stale", "other"`, ""} {
		req.Header.Set(fasthttp.HeaderIfNoneMatch, h)
		require.NoError(t, c.Do(req, resp))
		require.Equal(t, fasthttp.StatusOK, resp.StatusCode(), h)
	}
}

func TestAuth(t *testing.T) {
	setup := testsetup.Auth()
	require.Equal(t, "testsecret", setup.Config.API.JWTSecret)
	c := launch(t, setup.Config)

	sign := func(method jwt.SigningMethod, key any, exp time.Time) string {
		tk, err := jwt.NewWithClaims(method, jwt.MapClaims{
			"sub": "test",
			"exp": exp.Unix(),
		}).SignedString(key)
		require.NoError(t, err)
		return tk
	}

	for _, td := range []struct {
		Name          string
		Authorization string
		Expect        int
	}{
		{"no_header", "", fasthttp.StatusUnauthorized},
		{"not_bearer", "Basic dGVzdDp0ZXN0", fasthttp.StatusUnauthorized},
		{"garbage", "Bearer garbage", fasthttp.StatusUnauthorized},
		{
			"wrong_secret",
			"Bearer " + sign(
				jwt.SigningMethodHS256, []byte("wrong"), time.Now().Add(time.Hour),
			),
			fasthttp.StatusUnauthorized,
		},
		{
			"expired",
			"Bearer " + sign(
				jwt.SigningMethodHS256, []byte("testsecret"), time.Now().Add(-time.Hour),
			),
			fasthttp.StatusUnauthorized,
		},
		{
			"valid",
			"Bearer " + sign(
				jwt.SigningMethodHS256, []byte("testsecret"), time.Now().Add(time.Hour),
			),
			fasthttp.StatusOK,
		},
	} {
		t.Run(td.Name, func(t *testing.T) {
			req := fasthttp.AcquireRequest()
			defer fasthttp.ReleaseRequest(req)
			resp := fasthttp.AcquireResponse()
			defer fasthttp.ReleaseResponse(resp)

			req.Header.SetMethod(fasthttp.MethodPost)
			req.SetRequestURI("http://test/parse")
			req.SetBodyString(`{"profile":"byte","input":"-128"}`)
			if td.Authorization != "" {
				req.Header.Set("Authorization", td.Authorization)
			}
			require.NoError(t, c.Do(req, resp))
			require.Equal(t, td.Expect, resp.StatusCode(), string(resp.Body()))
			if td.Expect == fasthttp.StatusOK {
				require.Equal(t,
					"-128",
					gjson.GetBytes(resp.Body(), "results.0.value").String(),
				)
			}
		})
	}
}

func TestNewDuplicateProfiles(t *testing.T) {
	conf := *testsetup.Basic().Config
	conf.ProfilesEnabled = append(
		conf.ProfilesEnabled, conf.ProfilesEnabled[0],
	)
	_, err := server.New(&conf, plog.Logger{})
	require.Error(t, err)
}

func post(
	t *testing.T, c *fasthttp.Client, uri, body string,
) (status int, respBody []byte) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(uri)
	req.SetBodyString(body)
	require.NoError(t, c.Do(req, resp))
	return resp.StatusCode(), append([]byte(nil), resp.Body()...)
}
