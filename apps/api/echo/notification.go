package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/textmine/backend/core/notification"
)

type notificationApi struct {
	svc *notification.Service
}

func registerNotificationAPI(g *echo.Group, deps Deps) {
	api := notificationApi{svc: deps.NotificationSvc}

	g.GET("", api.list)
	g.GET("/unread-count", api.unreadCount)
	g.PUT("/:id/toggle", api.toggle)
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

func (api *notificationApi) list(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	read, err := queryBool(ctx, "read")
	if err != nil {
		return err
	}

	notifs, err := api.svc.List(ctx.Request().Context(), actor, &notification.QueryFilter{Read: read})
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.UnreadCount(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, UnreadCountResponse{Count: n})
}

func (api *notificationApi) toggle(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.Toggle(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling notification")
	}
	return ctx.JSON(http.StatusOK, n)
}
