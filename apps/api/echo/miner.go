package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/task"
	"github.com/textmine/backend/core/text"
)

type minerApi struct {
	classrooms *classroom.Service
	tasks      *task.Service
	texts      *text.Service
}

func registerMinerAPI(g *echo.Group, deps Deps) {
	api := minerApi{
		classrooms: deps.ClassroomSvc,
		tasks:      deps.TaskSvc,
		texts:      deps.TextSvc,
	}

	g.GET("/tasks", api.listDefaultTasks)

	cg := g.Group("/classrooms")
	cg.POST("/join", api.joinClassroom)
	cg.GET("", api.listClassrooms)

	// detail endpoints
	dg := cg.Group("/:cid")
	dg.GET("", api.retrieveClassroom)
	dg.GET("/tasks/:tid", api.retrieveTask)
	dg.POST("/tasks/:tid/texts", api.submitText)
	dg.GET("/results", api.listResults)
	dg.GET("/results/:tid", api.retrieveResult)
}

type (
	MinerClassroomDetail struct {
		Classroom classroom.Classroom `json:"classroom"`
		Tasks     []task.Task         `json:"tasks"` // not submitted yet
	}

	TaskProgress struct {
		Task task.Task `json:"task"`
		text.Progress
	}

	ResultDetail struct {
		text.Result
		State text.State `json:"state"`
	}
)

func (api *minerApi) listDefaultTasks(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	tasks, err := api.tasks.ListDefault(ctx.Request().Context(), actor, levelFilter(ctx))
	if err != nil {
		return errors.Wrap(err, "listing default tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *minerApi) joinClassroom(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data classroom.JoinRequest
	if err = bind(ctx, &data); err != nil {
		return err
	}

	c, err := api.classrooms.Join(ctx.Request().Context(), actor, data.Code)
	if err != nil {
		return errors.Wrap(err, "joining classroom")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *minerApi) listClassrooms(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	classrooms, err := api.classrooms.ListJoined(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing classrooms")
	}
	return ctx.JSON(http.StatusOK, classrooms)
}

func (api *minerApi) retrieveClassroom(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	c, err := api.classrooms.GetForParticipant(rctx, actor, ctx.Param("cid"))
	if err != nil {
		return errors.Wrap(err, "finding classroom")
	}
	tasks, err := api.texts.OpenTasks(rctx, actor, c.ID, levelFilter(ctx))
	if err != nil {
		return errors.Wrap(err, "listing open tasks")
	}
	return ctx.JSON(http.StatusOK, MinerClassroomDetail{Classroom: c, Tasks: tasks})
}

func (api *minerApi) retrieveTask(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	t, p, err := api.texts.Progress(ctx.Request().Context(), actor, ctx.Param("cid"), ctx.Param("tid"))
	if err != nil {
		return errors.Wrap(err, "finding task progress")
	}
	return ctx.JSON(http.StatusOK, TaskProgress{Task: t, Progress: p})
}

func (api *minerApi) submitText(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data text.NewText
	if err = bind(ctx, &data); err != nil {
		return err
	}

	txt, created, err := api.texts.Submit(ctx.Request().Context(), actor, ctx.Param("cid"), ctx.Param("tid"), data)
	if err != nil {
		return errors.Wrap(err, "submitting text")
	}
	if created {
		return ctx.JSON(http.StatusCreated, txt)
	}
	return ctx.JSON(http.StatusOK, txt)
}

func (api *minerApi) listResults(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	results, err := api.texts.Results(ctx.Request().Context(), actor, ctx.Param("cid"))
	if err != nil {
		return errors.Wrap(err, "listing results")
	}
	details := make([]ResultDetail, 0, len(results))
	for _, r := range results {
		details = append(details, ResultDetail{Result: r, State: r.State()})
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *minerApi) retrieveResult(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	r, err := api.texts.Result(ctx.Request().Context(), actor, ctx.Param("cid"), ctx.Param("tid"))
	if err != nil {
		return errors.Wrap(err, "finding result")
	}
	return ctx.JSON(http.StatusOK, ResultDetail{Result: r, State: r.State()})
}
