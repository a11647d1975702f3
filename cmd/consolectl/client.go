package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/coagronet/console/internal/interfaces/http/handler"
	"github.com/go-resty/resty/v2"
)

// apiError is a failed console response.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("console answered %d", e.Status)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// client calls the console API and keeps its session cookie in a file
// between invocations.
type client struct {
	http        *resty.Client
	jar         http.CookieJar
	base        *url.URL
	sessionFile string
}

func newClient(server, sessionFile, lang string) (*client, error) {
	base, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &client{
		http:        resty.New(),
		jar:         jar,
		base:        base,
		sessionFile: sessionFile,
	}
	c.http.
		SetBaseURL(base.String()).
		SetCookieJar(jar).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", lang)

	if err := c.loadCookies(); err != nil {
		return nil, err
	}
	return c, nil
}

// call sends a request and decodes the envelope. Notifications are returned
// even when the call failed.
func (c *client) call(ctx context.Context, method, path string, query url.Values, body, data any) (*handler.APIResponse[json.RawMessage], error) {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("console unreachable: %w", err)
	}
	if err := c.saveCookies(); err != nil {
		return nil, err
	}

	var env handler.APIResponse[json.RawMessage]
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, &apiError{Status: resp.StatusCode()}
	}
	if !env.Success {
		e := &apiError{Status: resp.StatusCode()}
		if env.Error != nil {
			e.Code, e.Message = env.Error.Code, env.Error.Message
		}
		return &env, e
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return &env, fmt.Errorf("decode response: %w", err)
		}
	}
	return &env, nil
}

// download posts body to path and copies a successful response to w.
func (c *client) download(ctx context.Context, path string, body any, w io.Writer) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/pdf, application/json").
		SetBody(body).
		SetDoNotParseResponse(true).
		Post(path)
	if err != nil {
		return "", fmt.Errorf("console unreachable: %w", err)
	}
	raw := resp.RawBody()
	defer raw.Close()
	if err := c.saveCookies(); err != nil {
		return "", err
	}

	if resp.StatusCode() != http.StatusOK {
		var env handler.APIResponse[json.RawMessage]
		e := &apiError{Status: resp.StatusCode()}
		if json.NewDecoder(io.LimitReader(raw, 64<<10)).Decode(&env) == nil && env.Error != nil {
			e.Code, e.Message = env.Error.Code, env.Error.Message
		}
		return "", e
	}
	if _, err := io.Copy(w, raw); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return resp.Header().Get("Content-Type"), nil
}

// loadCookies restores "name=value" lines written by saveCookies.
func (c *client) loadCookies() error {
	if c.sessionFile == "" {
		return nil
	}
	f, err := os.Open(c.sessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	var cookies []*http.Cookie
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		name, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	if err := sc.Err(); err != nil {
		return err
	}
	c.jar.SetCookies(c.base, cookies)
	return nil
}

func (c *client) saveCookies() error {
	if c.sessionFile == "" {
		return nil
	}
	var b strings.Builder
	for _, ck := range c.jar.Cookies(c.base) {
		b.WriteString(ck.Name + "=" + ck.Value + "\n")
	}
	if err := os.MkdirAll(filepath.Dir(c.sessionFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.sessionFile, []byte(b.String()), 0o600)
}

// forget removes the stored cookies.
func (c *client) forget() error {
	if c.sessionFile == "" {
		return nil
	}
	err := os.Remove(c.sessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
