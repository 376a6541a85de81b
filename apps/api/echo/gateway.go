package echoapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/alrightylabs/lutranscript/core"
	"github.com/alrightylabs/lutranscript/services/learnupon"
)

// the misspelling is part of the public route
const gatewayPrefix = "/api/learupon"

type gateway struct {
	upstream *learnupon.Client
}

// proxyError is the body sent back when LearnUpon cannot be reached or answers with an error.
type proxyError struct {
	Error   string `json:"error"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func registerGateway(g *echo.Group, upstream *learnupon.Client) {
	gw := gateway{upstream: upstream}
	g.Any("/*", gw.forward)
}

// forward relays the request to LearnUpon with the configured credentials. Successful answers
// are relayed verbatim; error answers keep their status and get wrapped in a proxyError.
func (gw gateway) forward(ctx echo.Context) error {
	req := ctx.Request()
	path := strings.TrimPrefix(req.URL.Path, gatewayPrefix)

	var body []byte
	if req.Method != http.MethodGet && req.Method != http.MethodHead && req.Body != nil {
		var err error
		if body, err = io.ReadAll(req.Body); err != nil {
			return errors.Wrap(err, "reading request body")
		}
	}

	res, err := gw.upstream.Do(req.Context(), req.Method, path, req.URL.RawQuery, body)
	if err != nil {
		ctx.Logger().Error(err)
		return ctx.JSON(http.StatusBadGateway, proxyError{
			Error:   "Proxy error",
			Message: err.Error(),
		})
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return ctx.JSON(res.StatusCode, proxyError{
			Error:   "Proxy error",
			Status:  res.StatusCode,
			Message: fmt.Sprintf("LearnUpon API error: %d - %s", res.StatusCode, http.StatusText(res.StatusCode)),
			Details: core.Snippet(res.Body, detailsLen),
		})
	}

	contentType := res.ContentType
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	return ctx.Blob(res.StatusCode, contentType, []byte(res.Body))
}
