// Package api implements the authenticated session against the
// station's WebAPI: capability discovery, login, request execution
// with a single transparent re-login on session expiry, and binary
// downloads for snapshots and recordings.
package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/technosupport/svs-client/internal/config"
	"github.com/technosupport/svs-client/internal/credentials"
	"github.com/technosupport/svs-client/internal/metrics"
	"github.com/technosupport/svs-client/internal/models"
)

const (
	requestTimeout = 30 * time.Second

	apiInfoName = "SYNO.API.Info"
	apiAuthName = "SYNO.API.Auth"
	sessionName = "SurveillanceStation"
)

// reloginCall is the shared future for one in-flight re-login.
// Concurrent callers that discover expiry wait on done instead of
// starting a second login.
type reloginCall struct {
	done chan struct{}
	err  error
}

// Session owns one authenticated connection to a station. It is safe
// for concurrent use: any number of Do/Download calls may run at once,
// and token mutation is confined to the login critical section.
type Session struct {
	profile config.Profile
	client  *http.Client
	baseURL string

	mu      sync.Mutex
	token   string
	creds   credentials.Credentials
	apiInfo map[string]models.ApiInfo
	authGen uint64 // bumped on every successful login
	relogin *reloginCall
}

// New builds an unauthenticated session for a profile. Connect must
// succeed before Do is usable.
func New(profile config.Profile) *Session {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if profile.UseHTTPS && !profile.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Session{
		profile: profile,
		baseURL: profile.BaseURL(),
		client: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		apiInfo: map[string]models.ApiInfo{},
	}
}

func (s *Session) Profile() config.Profile { return s.profile }

// Token returns the current SID, empty when unauthenticated.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Authenticated reports whether the session holds a token.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Connect performs capability discovery then login. The returned
// error is always an *AuthError with one of the three reasons.
func (s *Session) Connect(ctx context.Context, creds credentials.Credentials) error {
	if err := s.discoverAPIs(ctx); err != nil {
		return classifyConnectError(err)
	}
	if err := s.login(ctx, creds); err != nil {
		var apiErr *ApiError
		if errors.As(err, &apiErr) && apiErr.Kind == KindServerRejected {
			return &AuthError{Reason: AuthInvalidCredentials, Err: err}
		}
		return classifyConnectError(err)
	}
	return nil
}

func classifyConnectError(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostname x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostname) {
		return &AuthError{Reason: AuthTLSVerification, Err: err}
	}
	return &AuthError{Reason: AuthNetworkUnreachable, Err: err}
}

// discoverAPIs queries SYNO.API.Info so later calls use the right CGI
// path and version for this firmware.
func (s *Session) discoverAPIs(ctx context.Context) error {
	var info map[string]models.ApiInfo
	err := s.rawCall(ctx, "/webapi/query.cgi", Request{
		API:     apiInfoName,
		Method:  "Query",
		Version: 1,
		Params:  url.Values{"query": {"all"}},
	}, "", &info)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.apiInfo = info
	s.mu.Unlock()
	log.Printf("[DEBUG] Session: discovered %d APIs", len(info))
	return nil
}

// login runs the auth call and installs the new token. Callers hold
// no lock; token swap is atomic under mu.
func (s *Session) login(ctx context.Context, creds credentials.Credentials) error {
	var data struct {
		SID string `json:"sid"`
	}
	err := s.rawCall(ctx, s.apiPath(apiAuthName), Request{
		API:     apiAuthName,
		Method:  "Login",
		Version: s.apiVersion(apiAuthName, 6),
		Params: url.Values{
			"account": {creds.Username},
			"passwd":  {creds.Password},
			"session": {sessionName},
			"format":  {"sid"},
		},
	}, "", &data)
	if err != nil {
		return err
	}
	if data.SID == "" {
		return &AuthError{Reason: AuthInvalidCredentials, Err: errors.New("login succeeded but no SID returned")}
	}

	s.mu.Lock()
	s.token = data.SID
	s.creds = creds
	s.authGen++
	s.mu.Unlock()
	metrics.LoginsTotal.Inc()
	return nil
}

// Logout invalidates the session server-side on a best-effort basis
// and always drops the local token.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token != "" {
		err := s.rawCall(ctx, s.apiPath(apiAuthName), Request{
			API:     apiAuthName,
			Method:  "Logout",
			Version: s.apiVersion(apiAuthName, 6),
			Params:  url.Values{"session": {sessionName}},
		}, token, nil)
		if err != nil {
			log.Printf("[DEBUG] Session: server-side logout failed: %v", err)
		}
	}
	s.invalidate()
}

func (s *Session) invalidate() {
	s.mu.Lock()
	s.token = ""
	s.creds = credentials.Credentials{}
	s.mu.Unlock()
}

// snapshot returns the token and its generation so Do can tell whether
// a re-login already happened behind its back.
func (s *Session) snapshot() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.authGen
}

// Do executes one API call. If the payload reports a session error the
// session re-authenticates once (shared across concurrent callers) and
// retries the request exactly once. A second expiry within the same
// call surfaces as ApiError{session_lost} and the session transitions
// to unauthenticated.
func (s *Session) Do(ctx context.Context, req Request, out any) error {
	token, gen := s.snapshot()

	err := s.rawCall(ctx, s.apiPath(req.API), req, token, out)
	var apiErr *ApiError
	if !errors.As(err, &apiErr) || !apiErr.sessionExpired() {
		return err
	}

	log.Printf("[DEBUG] Session: error %d on %s.%s, attempting re-login", apiErr.Code, req.API, req.Method)
	if rerr := s.reauthenticate(ctx, gen); rerr != nil {
		s.invalidate()
		return &ApiError{Kind: KindSessionLost, Code: apiErr.Code, Err: rerr}
	}

	token, _ = s.snapshot()
	err = s.rawCall(ctx, s.apiPath(req.API), req, token, out)
	if errors.As(err, &apiErr) && apiErr.sessionExpired() {
		s.invalidate()
		return &ApiError{Kind: KindSessionLost, Code: apiErr.Code, Err: err}
	}
	return err
}

// reauthenticate performs at most one concurrent re-login. gen is the
// auth generation the caller's failed request was issued under; if a
// newer login already completed, there is nothing to do.
func (s *Session) reauthenticate(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	if s.authGen != gen && s.token != "" {
		s.mu.Unlock()
		return nil
	}
	if s.relogin != nil {
		call := s.relogin
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &reloginCall{done: make(chan struct{})}
	s.relogin = call
	creds := s.creds
	s.mu.Unlock()

	metrics.ReauthTotal.Inc()
	if creds.Username == "" {
		call.err = errors.New("no stored credentials for re-login")
	} else {
		call.err = s.login(ctx, creds)
	}

	s.mu.Lock()
	s.relogin = nil
	s.mu.Unlock()
	close(call.done)
	return call.err
}

// apiPath resolves the CGI path for an API from discovery, falling
// back to entry.cgi.
func (s *Session) apiPath(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.apiInfo[name]; ok && info.Path != "" {
		return "/webapi/" + info.Path
	}
	return "/webapi/entry.cgi"
}

// apiVersion caps the requested version at what the station supports.
func (s *Session) apiVersion(name string, requested int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.apiInfo[name]
	if !ok {
		if requested > 0 {
			return requested
		}
		return 1
	}
	if requested > 0 && requested < info.MaxVersion {
		return requested
	}
	return info.MaxVersion
}

// rawCall performs one HTTP round trip and decodes the envelope. No
// session-error handling here; that is Do's job.
func (s *Session) rawCall(ctx context.Context, path string, req Request, token string, out any) error {
	ver := s.apiVersion(req.API, req.Version)
	u := s.baseURL + path + "?" + req.values(token, ver).Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status %d from %s", resp.StatusCode, path)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("response decode: %w", err)
	}
	if !env.Success {
		code := env.Error.Code
		if code == 0 {
			code = 100
		}
		return &ApiError{Kind: KindServerRejected, Code: code}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("data decode: %w", err)
		}
	}
	return nil
}

func wrapTransportError(err error) error {
	// Deadline and cancellation are treated like a server error for
	// retry purposes: no retry beyond the single auto-reauth.
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return &ApiError{Kind: KindTimeout, Err: err}
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return &ApiError{Kind: KindTimeout, Err: err}
	}
	return err
}

// Download fetches binary data (snapshot images, recording files).
// Some endpoints answer JSON on failure even for binary methods, so a
// JSON content type is parsed through the usual envelope first.
func (s *Session) Download(ctx context.Context, req Request) ([]byte, error) {
	token, _ := s.snapshot()
	ver := s.apiVersion(req.API, req.Version)
	u := s.baseURL + s.apiPath(req.API) + "?" + req.values(token, ver).Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d from download", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil && !env.Success {
			code := env.Error.Code
			if code == 0 {
				code = 100
			}
			return nil, &ApiError{Kind: KindServerRejected, Code: code}
		}
	}
	return body, nil
}

// StreamURL builds a sid-bearing URL for streaming endpoints that are
// handed to an external player rather than fetched by this client.
func (s *Session) StreamURL(path string, params url.Values) string {
	v := url.Values{}
	for k, vals := range params {
		v[k] = vals
	}
	if token, _ := s.snapshot(); token != "" {
		v.Set("_sid", token)
	}
	return s.baseURL + "/webapi/" + path + "?" + v.Encode()
}

// BaseURL exposes the server root for callers that assemble absolute
// URLs out of relative paths in API responses.
func (s *Session) BaseURL() string { return s.baseURL }
