package echoapi_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/textmine/backend/apps/api/echo"
	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/notification"
	"github.com/textmine/backend/core/task"
	"github.com/textmine/backend/core/text"
	"github.com/textmine/backend/core/user"
	testutil "github.com/textmine/backend/tests"
)

func Test_essay101(t *testing.T) {
	env, app := newApp()
	adminUsr := testutil.CreateUser(t, env.Repos.Users, "Admin", "admin@example.com", "", user.RoleAdmin, true)
	modUsr := testutil.CreateUser(t, env.Repos.Users, "Mod", "mod@example.com", "", user.RoleModerator, true)
	minerUsr := testutil.CreateUser(t, env.Repos.Users, "Miner", "miner@example.com", "", user.RoleMiner, true)
	admin := getToken(t, env, adminUsr)
	mod := getToken(t, env, modUsr)
	other := getToken(t, env, testutil.CreateUser(t, env.Repos.Users, "Other", "other@example.com", "", user.RoleModerator, true))
	miner := getToken(t, env, minerUsr)
	outsider := getToken(t, env, testutil.CreateUser(t, env.Repos.Users, "Outsider", "outsider@example.com", "", user.RoleMiner, true))

	// moderator opens a classroom
	rec := do(app, http.MethodPost, "/v1/moderator/classrooms", mod, []byte(`{"title": "Essay 101"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c classroom.Classroom
	decode(t, rec, &c)
	require.Len(t, c.InvitationCode, classroom.CodeLength)
	cPath := "/v1/moderator/classrooms/" + c.ID
	mPath := "/v1/miner/classrooms/" + c.ID

	rec = do(app, http.MethodGet, cPath, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "another moderator's classroom")

	// miner joins
	rec = do(app, http.MethodPost, "/v1/miner/classrooms/join", miner, []byte(`{"code": "XXXXXXXX"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(app, http.MethodPost, "/v1/miner/classrooms/join", miner, []byte(fmt.Sprintf(`{"code": %q}`, c.InvitationCode)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, c)}, rec)

	rec = do(app, http.MethodGet, cPath+"/participants", mod)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalList(t, minerUsr)}, rec)

	// moderator adds a task
	rec = do(app, http.MethodPost, cPath+"/tasks", mod, []byte(`{"level": "EXPERT", "title": "My summer", "description": "Tell us."}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(app, http.MethodPost, cPath+"/tasks", mod, []byte(`{"level": "BEGINNER", "title": "My summer", "description": "Tell us about your summer."}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tk task.Task
	decode(t, rec, &tk)

	rec = do(app, http.MethodGet, cPath+"/tasks?level=ADVANCED", mod)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalList(t)}, rec)

	// miner sees the open task
	rec = do(app, http.MethodGet, mPath, miner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detail echoapi.MinerClassroomDetail
	decode(t, rec, &detail)
	require.Len(t, detail.Tasks, 1)
	assert.Equal(t, tk.ID, detail.Tasks[0].ID)

	rec = do(app, http.MethodGet, mPath, outsider)
	assert.Equal(t, http.StatusNotFound, rec.Code, "outsider")

	// miner submits
	taskPath := mPath + "/tasks/" + tk.ID
	rec = do(app, http.MethodPost, taskPath+"/texts", miner, []byte(fmt.Sprintf(`{"content": %q}`, strings.Repeat("a", 49))))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errs map[string]string
	decode(t, rec, &errs)
	assert.Contains(t, errs, "content")

	content := "During the summer I went to the seaside with my family and friends."
	rec = do(app, http.MethodPost, taskPath+"/texts", miner, []byte(fmt.Sprintf(`{"content": %q}`, content)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var txt text.Text
	decode(t, rec, &txt)
	assert.Equal(t, content, txt.Content)

	rec = do(app, http.MethodPost, taskPath+"/texts", miner, []byte(fmt.Sprintf(`{"content": %q}`, content+" Again.")))
	require.Equal(t, http.StatusOK, rec.Code, "resubmitting returns the first text")
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, txt)}, rec)

	rec = do(app, http.MethodPost, taskPath+"/texts", outsider, []byte(fmt.Sprintf(`{"content": %q}`, content)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(app, http.MethodGet, taskPath, miner)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress echoapi.TaskProgress
	decode(t, rec, &progress)
	assert.Equal(t, text.StateSubmitted, progress.State)

	// moderator corrects it
	rec = do(app, http.MethodGet, cPath+"/texts/pending", mod)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalList(t, txt)}, rec)

	rec = do(app, http.MethodPost, cPath+"/texts/00000000-0000-0000-0000-000000000000/moderate", mod, []byte(`{"content": "Fixed."}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	fixed := "During the summer, I went to the seaside with my family and friends."
	rec = do(app, http.MethodPost, cPath+"/texts/"+txt.ID+"/moderate", mod, []byte(fmt.Sprintf(`{"content": %q}`, fixed)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m text.ModeratedText
	decode(t, rec, &m)
	assert.Equal(t, txt.ID, m.OriginalID)

	rec = do(app, http.MethodPost, cPath+"/texts/"+txt.ID+"/moderate", mod, []byte(`{"content": "Fixed again."}`))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict,
		wantData: marshalObj(t, httpErr{Error: "this text was already moderated"}),
	}, rec)

	rec = do(app, http.MethodGet, cPath, mod)
	require.Equal(t, http.StatusOK, rec.Code)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marshalObj(t, echoapi.ClassroomDetail{Classroom: c, Pending: []text.Text{}, Moderated: []text.ModeratedText{m}}),
	}, rec)

	rec = do(app, http.MethodGet, cPath+"/moderated-texts/"+m.ID, mod)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marshalObj(t, text.Result{Text: txt, Moderated: &m}),
	}, rec)

	// miner reads the result
	rec = do(app, http.MethodGet, mPath+"/results/"+tk.ID, miner)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marshalObj(t, echoapi.ResultDetail{Result: text.Result{Text: txt, Moderated: &m}, State: text.StateModerated}),
	}, rec)

	rec = do(app, http.MethodGet, mPath, miner)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &detail)
	assert.Empty(t, detail.Tasks, "nothing left to do")

	// notifications
	rec = do(app, http.MethodGet, "/v1/notifications/unread-count", miner)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, echoapi.UnreadCountResponse{Count: 2})}, rec)

	rec = do(app, http.MethodGet, "/v1/notifications", miner)
	require.Equal(t, http.StatusOK, rec.Code)
	var notifs []notification.Notification
	decode(t, rec, &notifs)
	require.Len(t, notifs, 2)
	assert.Equal(t, "your text has been moderated", notifs[0].Description)
	assert.Equal(t, "new task added in Essay 101", notifs[1].Description)

	rec = do(app, http.MethodPut, "/v1/notifications/"+notifs[0].ID+"/toggle", outsider)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(app, http.MethodPut, "/v1/notifications/"+notifs[0].ID+"/toggle", miner)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(app, http.MethodGet, "/v1/notifications?read=false", miner)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &notifs)
	require.Len(t, notifs, 1)
	assert.Equal(t, "new task added in Essay 101", notifs[0].Description)

	rec = do(app, http.MethodGet, "/v1/notifications", mod)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &notifs)
	require.Len(t, notifs, 1)
	assert.Equal(t, "new text submitted in Essay 101", notifs[0].Description)

	// 1 task alert, 1 submission alert, 1 moderation alert
	assert.Len(t, env.MailSvc.SentMessages(), 3)

	// admin oversight
	rec = do(app, http.MethodGet, "/v1/admin/texts?task="+tk.ID, admin)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalList(t, txt)}, rec)
	rec = do(app, http.MethodGet, "/v1/admin/moderated-texts", admin)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalList(t, m)}, rec)

	// removing the miner keeps their history
	rec = do(app, http.MethodDelete, cPath+"/participants/"+minerUsr.ID, mod)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(app, http.MethodGet, mPath, miner)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(app, http.MethodGet, mPath+"/results", miner)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []echoapi.ResultDetail
	decode(t, rec, &results)
	require.Len(t, results, 1)
	assert.Equal(t, txt.ID, results[0].Text.ID)

	// deleting the task keeps the text
	rec = do(app, http.MethodDelete, cPath+"/tasks/"+tk.ID, other)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(app, http.MethodDelete, cPath+"/tasks/"+tk.ID, mod)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(app, http.MethodGet, "/v1/admin/texts?creator="+minerUsr.ID, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var texts []text.Text
	decode(t, rec, &texts)
	require.Len(t, texts, 1)
	assert.Nil(t, texts[0].TaskID)

	// deleting the classroom
	rec = do(app, http.MethodDelete, cPath, mod)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(app, http.MethodGet, cPath, mod)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
