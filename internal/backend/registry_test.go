package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/records-service/internal/config"
	"github.com/spec-kit/records-service/internal/domain"
	"github.com/spec-kit/records-service/internal/storage"
	"github.com/spec-kit/records-service/internal/storage/memory"
	apperrors "github.com/spec-kit/records-service/pkg/util"
)

type failingStore struct {
	storage.Store[domain.Item]
	initErr error
	closed  bool
}

func (f *failingStore) Initialize(context.Context) error { return f.initErr }

func (f *failingStore) Close() error {
	f.closed = true
	return nil
}

func TestSupportedNames(t *testing.T) {
	assert.Equal(t, []string{"memory", "postgres", "sqlite"}, ItemBackends().Names())
	assert.Equal(t, []string{"dynamodb", "memory", "postgres", "redis", "sqlite"}, TicketBackends().Names())
}

func TestOpenIsCaseInsensitive(t *testing.T) {
	store, err := ItemBackends().Open("  MEMORY ", Deps{})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store[domain.Item]{}, store)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := ItemBackends().Open("redis", Deps{})
	require.Error(t, err)
	assert.Equal(t, `unsupported backend "redis" (supported: memory, postgres, sqlite)`, err.Error())
}

func TestOpenEmptySelectsDefault(t *testing.T) {
	r := NewRegistry[domain.Item]()
	called := ""
	r.Register(DefaultName, func(Deps) (storage.Store[domain.Item], error) {
		called = DefaultName
		return memory.New[domain.Item](domain.ItemSchema{}), nil
	})

	_, err := r.Open("", Deps{})
	require.NoError(t, err)
	assert.Equal(t, "postgres", called)
}

func TestOpenDoesNotDial(t *testing.T) {
	cfg := &config.Config{Postgres: config.PostgresConfig{URL: "postgres://nobody@127.0.0.1:1/none"}}
	store, err := TicketBackends().Open("postgres", Deps{Config: cfg, Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestConstructorsRequireConfig(t *testing.T) {
	for _, name := range []string{"postgres", "sqlite", "redis", "dynamodb"} {
		_, err := TicketBackends().Open(name, Deps{})
		assert.Error(t, err, name)
	}
}

func TestBootstrapInitializesOnce(t *testing.T) {
	store, err := Bootstrap(context.Background(), ItemBackends(), "memory", Deps{Logger: zap.NewNop()})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Create(context.Background(), domain.Item{ID: "12345678A"})
	assert.NoError(t, err)
}

func TestBootstrapFailureClosesStore(t *testing.T) {
	fake := &failingStore{initErr: apperrors.NewUnavailable(errors.New("connection refused"))}
	r := NewRegistry[domain.Item]()
	r.Register("flaky", func(Deps) (storage.Store[domain.Item], error) { return fake, nil })

	_, err := Bootstrap(context.Background(), r, "flaky", Deps{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindUnavailable))
	assert.Contains(t, err.Error(), "initialize flaky backend")
	assert.True(t, fake.closed)
}

func TestBootstrapSQLite(t *testing.T) {
	cfg := &config.Config{SQLite: config.SQLiteConfig{Path: t.TempDir() + "/records.db"}}
	store, err := Bootstrap(context.Background(), TicketBackends(), "sqlite", Deps{Config: cfg, Logger: zap.NewNop()})
	require.NoError(t, err)
	defer store.Close()

	listed, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)
}
