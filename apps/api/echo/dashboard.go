package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/alrightylabs/lutranscript/core"
	"github.com/alrightylabs/lutranscript/core/dashboard"
	"github.com/alrightylabs/lutranscript/core/lms"
	"github.com/alrightylabs/lutranscript/core/transcript"
)

type (
	dashboardApi struct {
		dash *dashboard.Dashboard
	}

	refreshView struct {
		User  *transcript.UserReport  `json:"user,omitempty"`
		Group *transcript.GroupReport `json:"group,omitempty"`
	}
)

func registerDashboardAPI(g *echo.Group, dash *dashboard.Dashboard) {
	api := dashboardApi{dash: dash}

	gg := g.Group("/groups")
	gg.POST("/load", api.loadGroups)
	gg.GET("", api.queryGroups)
	gg.GET("/:id", api.retrieveGroup)
	gg.GET("/:id/members", api.queryMembers)

	tg := g.Group("/transcripts")
	tg.POST("/user", api.loadUserTranscript)
	tg.GET("/user", api.currentUserTranscript)
	tg.POST("/group", api.loadGroupTranscript)
	tg.GET("/group", api.currentGroupTranscript)
	tg.POST("/refresh", api.refresh)

	g.GET("/settings", api.retrieveSettings)
	g.PUT("/settings", api.updateSettings)
}

// Handlers

func (api *dashboardApi) loadGroups(ctx echo.Context) error {
	page, err := api.dash.LoadGroups(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading groups")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *dashboardApi) queryGroups(ctx echo.Context) error {
	var q GroupQuery
	q.Bind(ctx)
	return ctx.JSON(http.StatusOK, api.dash.Groups(q.Search, q.Page))
}

func (api *dashboardApi) retrieveGroup(ctx echo.Context) error {
	g, err := api.dash.GroupDetails(ctx.Request().Context(), lms.ID(ctx.Param("id")))
	if err != nil {
		return errors.Wrap(err, "retrieving group")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *dashboardApi) queryMembers(ctx echo.Context) error {
	members, err := api.dash.GroupMembers(ctx.Request().Context(), lms.ID(ctx.Param("id")))
	if err != nil {
		return errors.Wrap(err, "querying group members")
	}
	if members == nil {
		members = []lms.User{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *dashboardApi) loadUserTranscript(ctx echo.Context) error {
	var data userTranscriptRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to userTranscriptRequest")
	}
	data.Email = core.CleanString(data.Email)
	if err := ctx.Validate(&data); err != nil {
		return err
	}

	ut, err := api.dash.LoadUserTranscript(ctx.Request().Context(), data.Email)
	if err != nil {
		return errors.Wrap(err, "loading user transcript")
	}
	return ctx.JSON(http.StatusOK, ut.Report())
}

func (api *dashboardApi) currentUserTranscript(ctx echo.Context) error {
	ut := api.dash.UserTranscript()
	if ut == nil {
		return errHttpNoTranscript
	}
	return ctx.JSON(http.StatusOK, ut.Report())
}

func (api *dashboardApi) loadGroupTranscript(ctx echo.Context) error {
	var data groupTranscriptRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to groupTranscriptRequest")
	}
	data.Name = core.CleanString(data.Name)
	if err := ctx.Validate(&data); err != nil {
		return err
	}

	gt, err := api.dash.LoadGroupTranscript(ctx.Request().Context(), data.Name)
	if err != nil {
		return errors.Wrap(err, "loading group transcript")
	}
	return ctx.JSON(http.StatusOK, gt.Report())
}

func (api *dashboardApi) currentGroupTranscript(ctx echo.Context) error {
	gt := api.dash.GroupTranscript()
	if gt == nil {
		return errHttpNoTranscript
	}
	return ctx.JSON(http.StatusOK, gt.Report())
}

func (api *dashboardApi) refresh(ctx echo.Context) error {
	out, err := api.dash.Refresh(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "refreshing transcripts")
	}
	var view refreshView
	if out.User != nil {
		view.User = out.User.Report()
	}
	if out.Group != nil {
		view.Group = out.Group.Report()
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *dashboardApi) retrieveSettings(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.dash.Settings())
}

func (api *dashboardApi) updateSettings(ctx echo.Context) error {
	var data dashboard.Settings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Settings")
	}
	s, err := api.dash.UpdateSettings(data)
	if err != nil {
		return errors.Wrap(err, "updating settings")
	}
	return ctx.JSON(http.StatusOK, s)
}
