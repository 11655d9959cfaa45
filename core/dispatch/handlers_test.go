package dispatch_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textmine/backend/core/classroom"
	"github.com/textmine/backend/core/dispatch"
	"github.com/textmine/backend/core/task"
	"github.com/textmine/backend/core/text"
	"github.com/textmine/backend/core/user"
	testutil "github.com/textmine/backend/tests"
)

type fixtures struct {
	env       *testutil.Env
	moderator user.User
	miners    []user.User
	classroom classroom.Classroom
}

func setup(t *testing.T, joined int) fixtures {
	ctx := context.Background()
	env := testutil.NewEnv(nil)
	f := fixtures{
		env:       env,
		moderator: testutil.CreateUser(t, env.Repos.Users, "Mod", "mod@example.com", "", user.RoleModerator, true),
	}
	var err error
	f.classroom, err = env.Classrooms.Create(ctx, f.moderator, classroom.NewClassroom{Title: "Essay 101"})
	require.NoError(t, err)

	emails := []string{"ann@example.com", "ben@example.com", "cat@example.com"}
	for _, email := range emails[:joined] {
		usr := testutil.CreateUser(t, env.Repos.Users, email[:3], email, "", user.RoleMiner, true)
		_, err = env.Classrooms.Join(ctx, usr, f.classroom.InvitationCode)
		require.NoError(t, err)
		f.miners = append(f.miners, usr)
	}
	return f
}

func createTask(t *testing.T, f fixtures) task.Task {
	tk, err := f.env.Tasks.Create(context.Background(), f.moderator, f.classroom.ID, task.NewTask{
		Level:       task.LevelBeginner,
		Title:       "My summer",
		Description: "Write about your summer holidays.",
	})
	require.NoError(t, err)
	return tk
}

func TestHandlers_TaskCreated(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()

	tk := createTask(t, f)
	assert.Empty(t, f.env.Queue.Errors())
	assert.Len(t, f.env.Queue.Jobs(dispatch.KindSendEmail), 2)

	for _, miner := range f.miners {
		notifs, err := f.env.Notifications.List(ctx, miner, nil)
		require.NoError(t, err)
		require.Len(t, notifs, 1)
		assert.Equal(t, "new task added in Essay 101", notifs[0].Description)
		assert.Equal(t, dispatch.MinerTaskLink(f.classroom.ID, tk.ID), notifs[0].Link)
	}

	sent := f.env.MailSvc.SentMessages()
	require.Len(t, sent, 2)
	recipients := []string{sent[0].To[0].Address, sent[1].To[0].Address}
	assert.ElementsMatch(t, []string{f.miners[0].Email, f.miners[1].Email}, recipients)

	names := map[string]string{f.miners[0].Email: f.miners[0].Name, f.miners[1].Email: f.miners[1].Name}
	for _, msg := range sent {
		require.Len(t, msg.To, 1)
		assert.Contains(t, msg.TextContent, "Hello "+names[msg.To[0].Address]+",", "greets its own recipient")
	}
	for _, msg := range sent {
		assert.Equal(t, "New task", msg.Subject)
		assert.Contains(t, msg.TextContent, "My summer")
		assert.Contains(t, msg.HTMLContent, dispatch.MinerTaskLink(f.classroom.ID, tk.ID))
	}
}

func TestHandlers_TaskCreatedWithoutParticipants(t *testing.T) {
	f := setup(t, 0)

	createTask(t, f)
	assert.Len(t, f.env.Queue.Jobs(dispatch.KindTaskCreated), 1)
	assert.Empty(t, f.env.Queue.Jobs(dispatch.KindSendEmail))
	assert.Empty(t, f.env.Queue.Errors())
	assert.Empty(t, f.env.MailSvc.SentMessages())
}

func TestHandlers_EmailFailure(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	f.env.MailSvc.SetFailure(errors.New("smtp down"))

	createTask(t, f)

	errs := f.env.Queue.Errors()
	require.Len(t, errs, 2)
	for _, job := range f.env.Queue.Jobs(dispatch.KindSendEmail) {
		assert.Contains(t, errs, job.ID)
	}
	assert.Empty(t, f.env.MailSvc.SentMessages())

	// notifications are stored regardless
	for _, miner := range f.miners {
		count, err := f.env.Notifications.UnreadCount(ctx, miner)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	}
}

func TestHandlers_TextWorkflow(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()
	miner := f.miners[0]
	tk := createTask(t, f)
	f.env.MailSvc.Reset()

	txt, _, err := f.env.Texts.Submit(ctx, miner, f.classroom.ID, tk.ID, text.NewText{
		Content: "During the summer I went to the seaside with my family.",
	})
	require.NoError(t, err)

	notifs, err := f.env.Notifications.List(ctx, f.moderator, nil)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, "new text submitted in Essay 101", notifs[0].Description)
	assert.Equal(t, dispatch.ModeratorPendingLink(f.classroom.ID), notifs[0].Link)

	_, err = f.env.Texts.Moderate(ctx, f.moderator, f.classroom.ID, txt.ID, text.NewModeratedText{
		Content: "During the summer, I went to the seaside with my family.",
	})
	require.NoError(t, err)

	notifs, err = f.env.Notifications.List(ctx, miner, nil)
	require.NoError(t, err)
	require.Len(t, notifs, 2)
	assert.Equal(t, "your text has been moderated", notifs[0].Description)
	assert.Equal(t, dispatch.MinerResultLink(f.classroom.ID, tk.ID), notifs[0].Link)

	sent := f.env.MailSvc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, f.moderator.Email, sent[0].To[0].Address)
	assert.Equal(t, "New text", sent[0].Subject)
	assert.Equal(t, miner.Email, sent[1].To[0].Address)
	assert.Equal(t, "Text moderated", sent[1].Subject)
	assert.Empty(t, f.env.Queue.Errors())
}

func TestHandlers_BadPayload(t *testing.T) {
	f := setup(t, 0)

	h, err := f.env.Queue.Enqueue(context.Background(), dispatch.KindTaskCreated, "not an object")
	require.NoError(t, err)
	assert.Error(t, f.env.Queue.Errors()[h.ID])
}
