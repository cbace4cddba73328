package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/records-service/internal/domain"
	apperrors "github.com/spec-kit/records-service/pkg/util"
)

func newRedisStore(t *testing.T) (*RedisStore[domain.Ticket], *miniredis.Miniredis, *int) {
	t.Helper()
	mr := miniredis.RunT(t)
	dials := 0
	dial := func(context.Context) (*redis.Client, error) {
		dials++
		return redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), nil
	}
	store := NewRedisStore[domain.Ticket](domain.TicketSchema{}, dial, "records", "tickets", zap.NewNop())
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Initialize(context.Background()))
	return store, mr, &dials
}

func sampleTicket(id string, position int, created time.Time) domain.Ticket {
	return domain.Ticket{
		TicketID:  id,
		Title:     "ticket " + id,
		Status:    domain.TicketStatusToDo,
		Priority:  domain.TicketPriorityMedium,
		Position:  position,
		CreatedAt: created,
		UpdatedAt: created,
		Tags:      []string{},
	}
}

func TestRedisInitializeRegistersTable(t *testing.T) {
	store, mr, _ := newRedisStore(t)
	require.NoError(t, store.Initialize(context.Background()))

	members, err := mr.Members("records:tables")
	require.NoError(t, err)
	assert.Equal(t, []string{"tickets"}, members)
}

func TestRedisCRUD(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newRedisStore(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticket := sampleTicket("t1", 0, created)

	_, err := store.Create(ctx, ticket)
	require.NoError(t, err)
	assert.True(t, mr.Exists("records:tickets"))

	_, err = store.Create(ctx, ticket)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict), "got %v", err)

	got, found, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ticket t1", got.Title)
	assert.True(t, created.Equal(got.CreatedAt))

	_, found, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	later := created.Add(time.Hour)
	replacement := sampleTicket("t1", 5, later)
	replacement.Title = "renamed"
	updated, found, err := store.Update(ctx, "t1", replacement)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "renamed", updated.Title)
	assert.True(t, created.Equal(updated.CreatedAt))
	assert.True(t, later.Equal(updated.UpdatedAt))

	reread, _, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 5, reread.Position)

	_, found, err = store.Update(ctx, "missing", replacement)
	require.NoError(t, err)
	assert.False(t, found)

	deleted, err := store.Delete(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.Delete(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRedisListSortsByPositionThenCreation(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newRedisStore(t)

	empty, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, ticket := range []domain.Ticket{
		sampleTicket("late", 1, base.Add(time.Minute)),
		sampleTicket("top", 0, base.Add(time.Hour)),
		sampleTicket("early", 1, base),
	} {
		_, err := store.Create(ctx, ticket)
		require.NoError(t, err)
	}

	listed, err := store.List(ctx)
	require.NoError(t, err)
	ids := make([]string, len(listed))
	for i, ticket := range listed {
		ids[i] = ticket.TicketID
	}
	assert.Equal(t, []string{"top", "early", "late"}, ids)
}

func TestRedisUnreachableIsUnavailableAndRedials(t *testing.T) {
	ctx := context.Background()
	store, mr, dials := newRedisStore(t)
	require.Equal(t, 1, *dials)

	mr.Close()
	_, _, err := store.Get(ctx, "t1")
	assert.True(t, apperrors.Is(err, apperrors.KindUnavailable), "got %v", err)

	require.NoError(t, mr.Restart())
	_, found, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 2, *dials)
}

func TestRedisCancelledContextKeepsConnection(t *testing.T) {
	store, _, dials := newRedisStore(t)
	require.Equal(t, 1, *dials)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := store.Get(ctx, "t1")
	assert.True(t, apperrors.Is(err, apperrors.KindUnavailable), "got %v", err)

	_, found, err := store.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, *dials)
}

// bumpBeforeExec writes the watched hash from another connection right before
// every transaction is sent, so each WATCH round aborts.
type bumpBeforeExec struct {
	other *redis.Client
	key   string
}

func (h bumpBeforeExec) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h bumpBeforeExec) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (h bumpBeforeExec) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if err := h.other.HSet(ctx, h.key, "noise", time.Now().String()).Err(); err != nil {
			return err
		}
		return next(ctx, cmds)
	}
}

func TestRedisUpdateUnderContentionIsConflict(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = other.Close() })

	dial := func(context.Context) (*redis.Client, error) {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		client.AddHook(bumpBeforeExec{other: other, key: "records:tickets"})
		return client, nil
	}
	store := NewRedisStore[domain.Ticket](domain.TicketSchema{}, dial, "records", "tickets", zap.NewNop())
	t.Cleanup(func() { _ = store.Close() })

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.Create(ctx, sampleTicket("t1", 0, created))
	require.NoError(t, err)

	_, _, err = store.Update(ctx, "t1", sampleTicket("t1", 3, created))
	assert.True(t, apperrors.Is(err, apperrors.KindConflict), "got %v", err)

	stored, found, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0, stored.Position)
}

func TestRedisCorruptValueIsBackendError(t *testing.T) {
	store, mr, _ := newRedisStore(t)
	mr.HSet("records:tickets", "bad", "{not json")

	_, _, err := store.Get(context.Background(), "bad")
	assert.True(t, apperrors.Is(err, apperrors.KindBackend), "got %v", err)
}
