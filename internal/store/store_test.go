package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spigell/rallypoint/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "rallypoint.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

// tick makes every call to now return a strictly later instant.
func tick(s *Store, start time.Time) {
	var mu sync.Mutex
	current := start
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"projects", "postings"} {
		var name string
		err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
		require.Equal(t, table, name)
	}

	// Reopening an existing database keeps the data and does not fail.
	_, err := s.AddPosting(context.Background(), Posting{Title: "t", Description: "d"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(context.Background(), s.Path(), zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	postings, err := reopened.ListPostings(context.Background())
	require.NoError(t, err)
	require.Len(t, postings, 1)
}

func TestPostingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	tick(s, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	const n = 5
	for i := 0; i < n; i++ {
		stored, err := s.AddPosting(ctx, Posting{
			Title:       fmt.Sprintf("posting %d", i),
			Description: "Fix the plumbing",
		})
		require.NoError(t, err)
		require.NotZero(t, stored.ID)
	}

	postings, err := s.ListPostings(ctx)
	require.NoError(t, err)
	require.Len(t, postings, n)

	for i, p := range postings {
		require.Equal(t, fmt.Sprintf("posting %d", n-1-i), p.Title)
		if i > 0 {
			require.True(t, p.CreatedAt.Before(postings[i-1].CreatedAt), "postings must be newest first")
		}
	}
}

func TestPostingsSameTimestampOrderedByID(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		_, err := s.AddPosting(ctx, Posting{Title: title, Description: "d"})
		require.NoError(t, err)
	}

	postings, err := s.ListPostings(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"third", "second", "first"}, []string{postings[0].Title, postings[1].Title, postings[2].Title})
	require.True(t, postings[0].CreatedAt.Equal(fixed))
}

func TestProjectsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	tick(s, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := s.AddProject(ctx, Project{
		Name:        "Ada",
		Email:       "ada@example.com",
		Title:       "Garage workshop",
		Description: "Build a workbench",
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, first.Status)

	_, err = s.AddProject(ctx, Project{
		Name:        "Grace",
		Email:       "grace@example.com",
		Title:       "Website",
		Description: "Landing page",
		Status:      "Reviewed",
	})
	require.NoError(t, err)

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	require.Equal(t, "Grace", projects[0].Name)
	require.Equal(t, "Reviewed", projects[0].Status)
	require.Equal(t, "Ada", projects[1].Name)
	require.Equal(t, first.ID, projects[1].ID)
	require.True(t, projects[1].CreatedAt.Equal(first.CreatedAt))
}

func TestAddRejectsIncompleteRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddPosting(ctx, Posting{Title: "only a title"})
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrTypeInvalidInput))

	_, err = s.AddProject(ctx, Project{Name: "Ada", Email: "   ", Title: "t", Description: "d"})
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrTypeInvalidInput))

	postings, err := s.ListPostings(ctx)
	require.NoError(t, err)
	require.Empty(t, postings)

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Empty(t, projects)
}

func TestAddProjectKeepsFreeFormEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.AddProject(ctx, Project{Name: "Bob", Email: "bob at example", Title: "Deck", Description: "fix deck"})
	require.NoError(t, err)
	require.NotZero(t, stored.ID)

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, "bob at example", projects[0].Email)
}

func TestConcurrentWriters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddPosting(ctx, Posting{Title: fmt.Sprintf("job %d", i), Description: "d"})
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	postings, err := s.ListPostings(ctx)
	require.NoError(t, err)
	require.Len(t, postings, writers)
}

func TestStorageErrorsAreInternal(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.ListPostings(context.Background())
	require.Error(t, err)
	require.Equal(t, apperrors.ErrTypeInternal, apperrors.TypeOf(err))
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.Close())

	err := s.Ping(context.Background())
	require.Error(t, err)
	require.Equal(t, apperrors.ErrTypeUnavailable, apperrors.TypeOf(err))
}

func TestParseTimestamp(t *testing.T) {
	got, err := parseTimestamp("2025-03-01T12:00:00.000000Z")
	require.NoError(t, err)
	require.True(t, got.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))

	got, err = parseTimestamp("2025-03-01T12:00:00+02:00")
	require.NoError(t, err)
	require.Equal(t, 10, got.UTC().Hour())

	_, err = parseTimestamp("yesterday")
	require.Error(t, err)
}
