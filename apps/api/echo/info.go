package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"status":  "OK",
		"message": "LearnUpon CORS Proxy is running",
	})
}

func apiInfo(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": "LearnUpon CORS Proxy Server",
		"endpoints": echo.Map{
			"health":    "GET /health",
			"proxy":     "ANY " + gatewayPrefix + "/*",
			"dashboard": "GET /dashboard",
			"api":       "/v1",
		},
		"examples": []string{
			"GET " + gatewayPrefix + "/groups",
			"GET " + gatewayPrefix + "/users?email=user@example.com",
			"GET " + gatewayPrefix + "/users/{id}/enrollments",
			"GET " + gatewayPrefix + "/users/{id}/course_completions",
		},
	})
}
