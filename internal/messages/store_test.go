package messages

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu      sync.Mutex
	created []string
	liked   []string
	changed []string
	err     error
}

func (n *recordingNotifier) NotifyMessageCreated(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, id)
	return n.err
}

func (n *recordingNotifier) NotifyMessageLiked(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.liked = append(n.liked, id)
	return n.err
}

func (n *recordingNotifier) NotifyMessageChanged(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, id)
	return n.err
}

func setupStore(t *testing.T) (*Store, *recordingNotifier) {
	t.Helper()
	db, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err, "failed to create test database")

	notifier := &recordingNotifier{}
	store := NewStore(db, notifier, zap.NewNop())
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return store, notifier
}

func TestCreateAndGet(t *testing.T) {
	store, notifier := setupStore(t)
	ctx := context.Background()

	msg, err := store.Create(ctx, "u1", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, 0, msg.LikesCount)
	assert.Equal(t, []string{msg.ID}, notifier.created)

	got, err := store.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "u1", got.UserID)
}

func TestCreateValidation(t *testing.T) {
	store, notifier := setupStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "", "hello")
	assert.ErrorIs(t, err, ErrMissingUser)

	_, err = store.Create(ctx, "u1", "   ")
	assert.ErrorIs(t, err, ErrInvalidMessage)

	assert.Empty(t, notifier.created)
}

func TestGetMissing(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestListOldestFirst(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, "u1", "first")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := store.Create(ctx, "u2", "second")
	require.NoError(t, err)

	msgs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, second.ID, msgs[1].ID)
}

func TestLikeIsIdempotentPerUser(t *testing.T) {
	store, notifier := setupStore(t)
	ctx := context.Background()

	msg, err := store.Create(ctx, "author", "hello")
	require.NoError(t, err)

	liked, err := store.Like(ctx, msg.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, liked.LikesCount)
	require.Len(t, liked.LikedBy, 1)
	assert.Equal(t, "u1", liked.LikedBy[0].UserID)

	liked, err = store.Like(ctx, msg.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, liked.LikesCount)

	liked, err = store.Like(ctx, msg.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, liked.LikesCount)

	assert.Equal(t, []string{msg.ID, msg.ID, msg.ID}, notifier.liked)
}

func TestUnlike(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	msg, err := store.Create(ctx, "author", "hello")
	require.NoError(t, err)
	_, err = store.Like(ctx, msg.ID, "u1")
	require.NoError(t, err)

	unliked, err := store.Unlike(ctx, msg.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, unliked.LikesCount)
	assert.Empty(t, unliked.LikedBy)

	unliked, err = store.Unlike(ctx, msg.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, unliked.LikesCount)
}

func TestLikeMissingMessage(t *testing.T) {
	store, notifier := setupStore(t)
	ctx := context.Background()

	_, err := store.Like(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrMessageNotFound)

	_, err = store.Unlike(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrMessageNotFound)

	_, err = store.Like(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrMissingUser)

	assert.Empty(t, notifier.liked)
}

func TestUpdate(t *testing.T) {
	store, notifier := setupStore(t)
	ctx := context.Background()

	msg, err := store.Create(ctx, "u1", "helo")
	require.NoError(t, err)

	updated, err := store.Update(ctx, msg.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Text)
	assert.Equal(t, "u1", updated.UserID)

	got, err := store.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, []string{msg.ID}, notifier.changed)
}

func TestUpdateValidation(t *testing.T) {
	store, notifier := setupStore(t)
	ctx := context.Background()

	msg, err := store.Create(ctx, "u1", "hello")
	require.NoError(t, err)

	_, err = store.Update(ctx, msg.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = store.Update(ctx, "missing", "text")
	assert.ErrorIs(t, err, ErrMessageNotFound)

	require.NoError(t, store.Delete(ctx, msg.ID))
	notifier.changed = nil
	_, err = store.Update(ctx, msg.ID, "text")
	assert.ErrorIs(t, err, ErrMessageNotFound)
	assert.Empty(t, notifier.changed)
}

func TestDeleteHidesMessage(t *testing.T) {
	store, notifier := setupStore(t)
	ctx := context.Background()

	msg, err := store.Create(ctx, "u1", "bye")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, msg.ID))

	_, err = store.Get(ctx, msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	msgs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.ErrorIs(t, store.Delete(ctx, msg.ID), ErrMessageNotFound)
	assert.Equal(t, []string{msg.ID}, notifier.changed)
}

func TestNotifierFailureDoesNotFailWrite(t *testing.T) {
	store, notifier := setupStore(t)
	notifier.err = errors.New("hub stopped")

	msg, err := store.Create(context.Background(), "u1", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	assert.Error(t, err)
}
