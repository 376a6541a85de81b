// Package learnupon talks to the LearnUpon REST API v1, either directly with Basic-Auth
// credentials or through the credential-injecting gateway.
package learnupon

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/alrightylabs/lutranscript/core"
	"github.com/alrightylabs/lutranscript/core/group"
	"github.com/alrightylabs/lutranscript/core/lms"
	"github.com/alrightylabs/lutranscript/core/transcript"
)

const snippetLen = 200

type (
	// Options selects how the client reaches LearnUpon.
	// In proxy mode requests go to ProxyURL without credentials; the gateway adds them.
	Options struct {
		Mode     string
		BaseURL  string
		ProxyURL string
		Username string
		Password string
		Timeout  time.Duration
	}

	Client struct {
		rest    *rest.Client
		baseURL string
		auth    string
	}

	// Response is an upstream answer, whatever its status.
	Response struct {
		StatusCode  int
		ContentType string
		Body        string
	}
)

var (
	_ transcript.Source = (*Client)(nil)
	_ group.Source      = (*Client)(nil)
)

func OptionsFromConfig(conf *core.Config) Options {
	return Options{
		Mode:     conf.Mode(),
		BaseURL:  conf.LearnUpon.BaseURL,
		ProxyURL: conf.Proxy.URL,
		Username: conf.LearnUpon.Username,
		Password: conf.LearnUpon.Password,
		Timeout:  conf.LearnUpon.Timeout,
	}
}

func NewClient(opts Options) *Client {
	c := &Client{
		rest: &rest.Client{HTTPClient: &http.Client{Timeout: opts.Timeout}},
	}
	if opts.Mode == core.ModeProxy {
		c.baseURL = strings.TrimRight(opts.ProxyURL, "/")
	} else {
		c.baseURL = strings.TrimRight(opts.BaseURL, "/")
		c.auth = BasicAuth(opts.Username, opts.Password)
	}
	return c
}

// BasicAuth is the Authorization header value for username and password.
func BasicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func (c *Client) BaseURL() string { return c.baseURL }

// Do sends method path?rawQuery upstream and returns the response whatever its status.
// Only network failures are errors.
func (c *Client) Do(ctx context.Context, method, path, rawQuery string, body []byte) (*Response, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if rawQuery != "" {
		endpoint += "?" + rawQuery
	}
	req := rest.Request{
		Method:  rest.Method(method),
		BaseURL: endpoint,
		Headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		},
	}
	if method != http.MethodGet && method != http.MethodHead {
		req.Body = body
	}
	if c.auth != "" {
		req.Headers["Authorization"] = c.auth
	}

	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return nil, core.NewTransportError(method+" "+path, err)
	}
	out := &Response{StatusCode: res.StatusCode, Body: res.Body}
	if ct := res.Headers["Content-Type"]; len(ct) > 0 {
		out.ContentType = ct[0]
	}
	return out, nil
}

// get fetches path and fails with a *core.HTTPError on non-2xx answers.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	res, err := c.Do(ctx, http.MethodGet, path, query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &core.HTTPError{
			Method:     http.MethodGet,
			URL:        c.baseURL + path,
			StatusCode: res.StatusCode,
			Body:       core.Snippet(res.Body, snippetLen),
		}
	}
	return []byte(res.Body), nil
}

func list[T any](ctx context.Context, c *Client, path string, query url.Values, key string) ([]T, error) {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	items, err := lms.DecodeList[T](body, key)
	return items, errors.Wrapf(err, "GET %s", path)
}

func (c *Client) ListUsersByEmail(ctx context.Context, email string) ([]lms.User, error) {
	return list[lms.User](ctx, c, "/users", url.Values{"email": {email}}, lms.KeyUsers)
}

func (c *Client) ListGroups(ctx context.Context) ([]lms.Group, error) {
	return list[lms.Group](ctx, c, "/groups", nil, lms.KeyGroups)
}

func (c *Client) GetGroup(ctx context.Context, id lms.ID) (lms.Group, error) {
	path := "/groups/" + url.PathEscape(id.String())
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return lms.Group{}, err
	}
	g, err := lms.DecodeObject[lms.Group](body, lms.KeyGroups)
	return g, errors.Wrapf(err, "GET %s", path)
}

func (c *Client) ListGroupMembers(ctx context.Context, groupID lms.ID) ([]lms.User, error) {
	return list[lms.User](ctx, c, "/groups/"+url.PathEscape(groupID.String())+"/users", nil, lms.KeyUsers)
}

func (c *Client) ListEnrollments(ctx context.Context, userID lms.ID) ([]lms.Enrollment, error) {
	return list[lms.Enrollment](ctx, c, "/users/"+url.PathEscape(userID.String())+"/enrollments", nil, lms.KeyEnrollments)
}

func (c *Client) ListCompletions(ctx context.Context, userID lms.ID) ([]lms.Completion, error) {
	return list[lms.Completion](ctx, c, "/users/"+url.PathEscape(userID.String())+"/course_completions", nil, lms.KeyCompletions)
}
