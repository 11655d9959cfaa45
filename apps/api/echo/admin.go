package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/textmine/backend/core/text"
	"github.com/textmine/backend/core/user"
)

type adminApi struct {
	users    *user.Service
	texts    *text.Service
	validate *validator.Validate
}

func registerAdminAPI(g *echo.Group, deps Deps) {
	api := adminApi{
		users:    deps.UserSvc,
		texts:    deps.TextSvc,
		validate: deps.Validate,
	}

	g.GET("/users", api.queryUsers)
	g.POST("/users", api.createUser)
	g.PUT("/users/:id/toggle-active", api.toggleActive)
	g.GET("/texts", api.queryTexts)
	g.GET("/moderated-texts", api.queryModeratedTexts)
}

func (api *adminApi) queryUsers(ctx echo.Context) error {
	isActive, err := queryBool(ctx, "is_active")
	if err != nil {
		return err
	}
	filter := &user.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Role:     user.Role(ctx.QueryParam("role")),
		IsActive: isActive,
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.users.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.users); err != nil {
		return err
	}

	usr, err := api.users.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *adminApi) toggleActive(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	usr, err := api.users.ToggleActive(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling user activity")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) queryTexts(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	filter := &text.QueryFilter{
		CreatorID:   ctx.QueryParam("creator"),
		ClassroomID: ctx.QueryParam("classroom"),
		TaskID:      ctx.QueryParam("task"),
	}
	filter.Clean()

	texts, err := api.texts.List(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "querying texts")
	}
	return ctx.JSON(http.StatusOK, texts)
}

func (api *adminApi) queryModeratedTexts(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	mods, err := api.texts.ListModerated(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying moderated texts")
	}
	return ctx.JSON(http.StatusOK, mods)
}
