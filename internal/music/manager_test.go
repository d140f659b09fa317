package music

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerEnforcesOneSessionPerGuild(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.manager.Create("guild-1", "text-1", UserRef{ID: "user-2"})
	assert.ErrorIs(t, err, ErrSessionExists)

	other, err := env.manager.Create("guild-2", "text-1", UserRef{ID: "user-2"})
	require.NoError(t, err)
	assert.NotNil(t, other)
	assert.Len(t, env.manager.Sessions(), 2)
}

func TestManagerGet(t *testing.T) {
	env := newTestEnv(t)

	assert.Same(t, env.session, env.manager.Get("guild-1"))
	assert.Nil(t, env.manager.Get("guild-unknown"))
}

func TestManagerDestroyIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.session.Join(context.Background()))

	assert.True(t, env.manager.Destroy(env.session))
	assert.False(t, env.manager.Destroy(env.session), "second destroy reports the session as gone")
	assert.Nil(t, env.manager.Get("guild-1"))

	env.engine.mu.Lock()
	defer env.engine.mu.Unlock()
	assert.True(t, env.engine.closed)

	require.Len(t, env.dialer.conns, 1)
	conn := env.dialer.conns[0]
	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.True(t, conn.disconnected)
}

func TestManagerDestroyNil(t *testing.T) {
	env := newTestEnv(t)
	assert.False(t, env.manager.Destroy(nil))
}

func TestManagerShutdownDestroysAll(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.manager.Create("guild-2", "text-1", UserRef{ID: "user-2"})
	require.NoError(t, err)

	env.manager.Shutdown()
	assert.Empty(t, env.manager.Sessions())
}

func TestSessionRecreatableAfterDestroy(t *testing.T) {
	env := newTestEnv(t)

	require.True(t, env.manager.Destroy(env.session))
	replacement, err := env.manager.Create("guild-1", "text-1", UserRef{ID: "user-1"})
	require.NoError(t, err)
	assert.NotSame(t, env.session, replacement)
}
