package notification_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/notification"
	"github.com/textmine/backend/core/user"
	testutil "github.com/textmine/backend/tests"
)

func TestService(t *testing.T) {
	env := testutil.NewEnv(nil)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.Repos.Users, "Alice", "alice@example.com", "", user.RoleMiner, true)
	bob := testutil.CreateUser(t, env.Repos.Users, "Bob", "bob@example.com", "", user.RoleMiner, true)

	none, err := env.Notifications.Create(ctx, nil, nil, "/miner/notifications", "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	long := strings.Repeat("é", notification.DescriptionMaxLength+20)
	created, err := env.Notifications.Create(ctx, []string{alice.ID, bob.ID}, nil, "/miner/notifications", long)
	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, n := range created {
		assert.Equal(t, notification.DescriptionMaxLength, len([]rune(n.Description)))
		assert.False(t, n.Read)
	}

	taskID := "5a1cbd5b-46a0-4a4e-9dd9-2a2bde4b2f3c"
	_, err = env.Notifications.Create(ctx, []string{alice.ID}, &taskID, "/miner/notifications", "second")
	require.NoError(t, err)

	t.Run("list", func(t *testing.T) {
		notifs, err := env.Notifications.List(ctx, alice, nil)
		require.NoError(t, err)
		require.Len(t, notifs, 2)
		assert.Equal(t, "second", notifs[0].Description, "newest first")
		require.NotNil(t, notifs[0].TaskID)
		assert.Equal(t, taskID, *notifs[0].TaskID)

		count, err := env.Notifications.UnreadCount(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("toggle", func(t *testing.T) {
		notifs, err := env.Notifications.List(ctx, alice, nil)
		require.NoError(t, err)
		target := notifs[0]

		_, err = env.Notifications.Toggle(ctx, bob, target.ID)
		assert.True(t, core.IsNotFound(err), "another user's notification: %v", err)

		n, err := env.Notifications.Toggle(ctx, alice, target.ID)
		require.NoError(t, err)
		assert.True(t, n.Read)

		read := true
		readOnly, err := env.Notifications.List(ctx, alice, &notification.QueryFilter{Read: &read})
		require.NoError(t, err)
		require.Len(t, readOnly, 1)
		assert.Equal(t, target.ID, readOnly[0].ID)

		count, err := env.Notifications.UnreadCount(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		n, err = env.Notifications.Toggle(ctx, alice, target.ID)
		require.NoError(t, err)
		assert.False(t, n.Read)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := env.Notifications.Toggle(ctx, alice, "00000000-0000-0000-0000-000000000000")
		assert.True(t, core.IsNotFound(err), "got %v", err)
	})
}
