package memstore

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/commandapi/internal/models"
	"github.com/harrylevesque/commandapi/internal/storage"
)

func cmd(howTo string) models.Command {
	return models.Command{HowTo: howTo, Platform: "Some Platform", CommandLine: "Some Command"}
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	a, err := s.Create(ctx, cmd("a"))
	require.NoError(t, err)
	b, err := s.Create(ctx, cmd("b"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)

	got, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	b.HowTo = "b2"
	require.NoError(t, s.Update(ctx, b))
	got, err = s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "b2", got.HowTo)

	removed, err := s.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, removed)

	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Command{b}, list)
}

func TestMissingRecords(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, 1)
	assert.True(t, storage.IsNotFound(err))
	_, err = s.Delete(ctx, 1)
	assert.True(t, storage.IsNotFound(err))
	err = s.Update(ctx, models.Command{ID: 1, HowTo: "h", Platform: "p", CommandLine: "c"})
	assert.True(t, storage.IsNotFound(err))
}

func TestIDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, err := s.Create(ctx, cmd("a"))
	require.NoError(t, err)
	_, err = s.Delete(ctx, a.ID)
	require.NoError(t, err)
	b, err := s.Create(ctx, cmd("b"))
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID)
}

func TestCreateRejectsOversizedHowTo(t *testing.T) {
	s := New()
	_, err := s.Create(context.Background(), cmd(strings.Repeat("x", models.MaxHowToLength+1)))
	assert.True(t, storage.IsInvalid(err))
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "commands.json")

	s, err := Open(path)
	require.NoError(t, err)
	a, err := s.Create(ctx, cmd("a"))
	require.NoError(t, err)
	_, err = s.Create(ctx, cmd("b"))
	require.NoError(t, err)
	_, err = s.Delete(ctx, 2)
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)
	list, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Command{a}, list)

	c, err := reopened.Create(ctx, cmd("c"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.ID)
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, cmd("x"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 50)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().List(ctx)
	assert.Error(t, err)
}
