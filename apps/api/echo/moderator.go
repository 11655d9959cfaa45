package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/task"
	"github.com/textmine/backend/core/text"
)

type moderatorApi struct {
	classrooms *classroom.Service
	tasks      *task.Service
	texts      *text.Service
}

func registerModeratorAPI(g *echo.Group, deps Deps) {
	api := moderatorApi{
		classrooms: deps.ClassroomSvc,
		tasks:      deps.TaskSvc,
		texts:      deps.TextSvc,
	}

	cg := g.Group("/classrooms")
	cg.POST("", api.createClassroom)
	cg.GET("", api.listClassrooms)

	// detail endpoints
	dg := cg.Group("/:cid")
	dg.GET("", api.retrieveClassroom)
	dg.DELETE("", api.destroyClassroom)
	dg.GET("/participants", api.listParticipants)
	dg.DELETE("/participants/:uid", api.removeParticipant)
	dg.POST("/tasks", api.createTask)
	dg.GET("/tasks", api.listTasks)
	dg.PUT("/tasks/:tid", api.updateTask)
	dg.DELETE("/tasks/:tid", api.destroyTask)
	dg.GET("/texts/pending", api.listPendingTexts)
	dg.POST("/texts/:tid/moderate", api.moderateText)
	dg.GET("/moderated-texts", api.listModeratedTexts)
	dg.GET("/moderated-texts/:mid", api.retrieveModeratedText)
}

type ClassroomDetail struct {
	Classroom classroom.Classroom  `json:"classroom"`
	Pending   []text.Text          `json:"pending"`
	Moderated []text.ModeratedText `json:"moderated"`
}

func (api *moderatorApi) createClassroom(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data classroom.NewClassroom
	if err = bind(ctx, &data); err != nil {
		return err
	}

	c, err := api.classrooms.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *moderatorApi) listClassrooms(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	summaries, err := api.classrooms.ListOwned(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing classrooms")
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *moderatorApi) retrieveClassroom(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	c, err := api.classrooms.GetForOwner(rctx, actor, ctx.Param("cid"))
	if err != nil {
		return errors.Wrap(err, "finding classroom")
	}
	pending, err := api.texts.Pending(rctx, actor, c.ID)
	if err != nil {
		return errors.Wrap(err, "listing pending texts")
	}
	moderated, err := api.texts.Moderated(rctx, actor, c.ID)
	if err != nil {
		return errors.Wrap(err, "listing moderated texts")
	}
	return ctx.JSON(http.StatusOK, ClassroomDetail{Classroom: c, Pending: pending, Moderated: moderated})
}

func (api *moderatorApi) destroyClassroom(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.classrooms.Delete(ctx.Request().Context(), actor, ctx.Param("cid")); err != nil {
		return errors.Wrap(err, "deleting classroom")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *moderatorApi) listParticipants(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	users, err := api.classrooms.Participants(ctx.Request().Context(), actor, ctx.Param("cid"))
	if err != nil {
		return errors.Wrap(err, "listing participants")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *moderatorApi) removeParticipant(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	err = api.classrooms.RemoveParticipant(ctx.Request().Context(), actor, ctx.Param("cid"), ctx.Param("uid"))
	if err != nil {
		return errors.Wrap(err, "removing participant")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *moderatorApi) createTask(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data task.NewTask
	if err = bind(ctx, &data); err != nil {
		return err
	}

	t, err := api.tasks.Create(ctx.Request().Context(), actor, ctx.Param("cid"), data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *moderatorApi) listTasks(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	filter := levelFilter(ctx)

	tasks, err := api.tasks.List(ctx.Request().Context(), actor, ctx.Param("cid"), filter)
	if err != nil {
		return errors.Wrap(err, "listing tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *moderatorApi) updateTask(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data task.NewTask
	if err = bind(ctx, &data); err != nil {
		return err
	}

	t, err := api.tasks.Update(ctx.Request().Context(), actor, ctx.Param("cid"), ctx.Param("tid"), data)
	if err != nil {
		return errors.Wrap(err, "updating task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *moderatorApi) destroyTask(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.tasks.Delete(ctx.Request().Context(), actor, ctx.Param("cid"), ctx.Param("tid")); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *moderatorApi) listPendingTexts(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	texts, err := api.texts.Pending(ctx.Request().Context(), actor, ctx.Param("cid"))
	if err != nil {
		return errors.Wrap(err, "listing pending texts")
	}
	return ctx.JSON(http.StatusOK, texts)
}

func (api *moderatorApi) moderateText(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data text.NewModeratedText
	if err = bind(ctx, &data); err != nil {
		return err
	}

	m, err := api.texts.Moderate(ctx.Request().Context(), actor, ctx.Param("cid"), ctx.Param("tid"), data)
	if err != nil {
		return errors.Wrap(err, "moderating text")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *moderatorApi) listModeratedTexts(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	mods, err := api.texts.Moderated(ctx.Request().Context(), actor, ctx.Param("cid"))
	if err != nil {
		return errors.Wrap(err, "listing moderated texts")
	}
	return ctx.JSON(http.StatusOK, mods)
}

func (api *moderatorApi) retrieveModeratedText(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	res, err := api.texts.GetModerated(ctx.Request().Context(), actor, ctx.Param("cid"), ctx.Param("mid"))
	if err != nil {
		return errors.Wrap(err, "finding moderated text")
	}
	return ctx.JSON(http.StatusOK, res)
}

func levelFilter(ctx echo.Context) *task.QueryFilter {
	filter := &task.QueryFilter{Level: task.Level(ctx.QueryParam("level"))}
	filter.Clean()
	return filter
}
