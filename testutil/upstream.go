// Package testutil has the helpers shared by the package tests: a fake LearnUpon API and a recording logger.
package testutil

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/alrightylabs/lutranscript/core/lms"
)

// Response wrappings the fake API can answer with.
const (
	WrapBare  = "bare"  // [...]
	WrapNamed = "named" // {"groups": [...]}
	WrapData  = "data"  // {"data": [...]}
)

type (
	// Fixture is the data served by Upstream. It must not be modified once the server started.
	Fixture struct {
		Username string
		Password string
		Wrap     string

		Users       []lms.User
		Groups      []lms.Group
		Members     map[lms.ID][]lms.User
		Enrollments map[lms.ID][]lms.Enrollment
		Completions map[lms.ID][]lms.Completion
	}

	// Request is what Upstream received.
	Request struct {
		Method string
		Path   string
		Query  string
		Auth   string
		Body   string
	}

	// Upstream is a fake LearnUpon API v1.
	Upstream struct {
		*httptest.Server
		fx Fixture

		mu       sync.Mutex
		fail     map[string]int
		requests []Request
	}
)

func NewUpstream(t *testing.T, fx Fixture) *Upstream {
	t.Helper()
	if fx.Wrap == "" {
		fx.Wrap = WrapNamed
	}
	u := &Upstream{fx: fx, fail: make(map[string]int)}

	e := echo.New()
	e.HideBanner = true
	e.Use(u.record, u.auth, u.failures)
	e.GET("/groups", func(ctx echo.Context) error {
		return writeList(u, ctx, lms.KeyGroups, u.fx.Groups)
	})
	e.GET("/groups/:id", func(ctx echo.Context) error {
		for _, g := range u.fx.Groups {
			if g.ID.String() == ctx.Param("id") {
				return writeList(u, ctx, lms.KeyGroups, []lms.Group{g})
			}
		}
		return ctx.JSON(http.StatusNotFound, echo.Map{"message": "Group not found"})
	})
	e.GET("/groups/:id/users", func(ctx echo.Context) error {
		return writeList(u, ctx, lms.KeyUsers, u.fx.Members[lms.ID(ctx.Param("id"))])
	})
	e.GET("/users", func(ctx echo.Context) error {
		email := ctx.QueryParam("email")
		users := make([]lms.User, 0)
		for _, usr := range u.fx.Users {
			if email == "" || strings.EqualFold(usr.Email, email) {
				users = append(users, usr)
			}
		}
		return writeList(u, ctx, lms.KeyUsers, users)
	})
	e.GET("/users/:id/enrollments", func(ctx echo.Context) error {
		return writeList(u, ctx, lms.KeyEnrollments, u.fx.Enrollments[lms.ID(ctx.Param("id"))])
	})
	e.GET("/users/:id/course_completions", func(ctx echo.Context) error {
		return writeList(u, ctx, lms.KeyCompletions, u.fx.Completions[lms.ID(ctx.Param("id"))])
	})
	// anything else echoes the request back
	e.Any("/*", func(ctx echo.Context) error {
		reqs := u.Requests()
		return ctx.JSON(http.StatusOK, reqs[len(reqs)-1])
	})

	u.Server = httptest.NewServer(e)
	t.Cleanup(u.Close)
	return u
}

// Fail makes every request to path answer with status.
func (u *Upstream) Fail(path string, status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fail[path] = status
}

func (u *Upstream) Requests() []Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Request(nil), u.requests...)
}

// Paths returns the path of every request received, in order.
func (u *Upstream) Paths() []string {
	reqs := u.Requests()
	paths := make([]string, 0, len(reqs))
	for _, r := range reqs {
		paths = append(paths, r.Path)
	}
	return paths
}

// BasicAuth is the Authorization header value Upstream expects.
func BasicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func (u *Upstream) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		body, _ := io.ReadAll(req.Body)
		u.mu.Lock()
		u.requests = append(u.requests, Request{
			Method: req.Method,
			Path:   req.URL.Path,
			Query:  req.URL.RawQuery,
			Auth:   req.Header.Get(echo.HeaderAuthorization),
			Body:   string(body),
		})
		u.mu.Unlock()
		return next(ctx)
	}
}

func (u *Upstream) auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if u.fx.Username == "" {
			return next(ctx)
		}
		if ctx.Request().Header.Get(echo.HeaderAuthorization) != BasicAuth(u.fx.Username, u.fx.Password) {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
		}
		return next(ctx)
	}
}

func (u *Upstream) failures(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		u.mu.Lock()
		status, ok := u.fail[ctx.Request().URL.Path]
		u.mu.Unlock()
		if ok {
			return ctx.JSON(status, echo.Map{"message": http.StatusText(status)})
		}
		return next(ctx)
	}
}

func writeList[T any](u *Upstream, ctx echo.Context, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	switch u.fx.Wrap {
	case WrapBare:
		return ctx.JSON(http.StatusOK, items)
	case WrapData:
		return ctx.JSON(http.StatusOK, echo.Map{lms.KeyData: items})
	}
	return ctx.JSON(http.StatusOK, echo.Map{key: items})
}
