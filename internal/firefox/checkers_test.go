package firefox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/foxcap/internal/testutil"
)

func recorder(calls *[]string, name string) CheckFunc {
	return func(ctx context.Context, s *Session) error {
		*calls = append(*calls, name)
		return nil
	}
}

func TestCheckers_RunInRegistrationOrderOncePerWait(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser()
	b.OpenWindow(pageA)
	s := newSession(t, b)

	var calls []string
	s.AddChecker("first", recorder(&calls, "first"))
	s.AddChecker("second", recorder(&calls, "second"))
	s.AddChecker("third", recorder(&calls, "third"))

	require.NoError(t, s.Wait(context.Background()))
	require.NoError(t, s.Wait(context.Background()))

	assert.Equal(t, []string{"first", "second", "third", "first", "second", "third"}, calls)
}

func TestCheckers_RemovedCheckerDoesNotFire(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser()
	b.OpenWindow(pageA)
	s := newSession(t, b)

	var calls []string
	s.AddChecker("keep", recorder(&calls, "keep"))
	drop := s.AddChecker("drop", recorder(&calls, "drop"))

	assert.True(t, s.RemoveChecker(drop))
	assert.False(t, s.RemoveChecker(drop))

	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, []string{"keep"}, calls)
	assert.Len(t, s.Checkers(), 1)
}

func TestCheckers_SameFunctionRegisteredTwice(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser()
	b.OpenWindow(pageA)
	s := newSession(t, b)

	var calls []string
	fn := recorder(&calls, "x")
	first := s.AddChecker("x", fn)
	s.AddChecker("x", fn)

	s.RemoveChecker(first)
	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, []string{"x"}, calls)
}

func TestCheckers_ErrorPropagatesAndStopsLaterCheckers(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser()
	b.OpenWindow(pageA)
	s := newSession(t, b)

	pageErr := errors.New("server error page")
	var calls []string
	s.AddChecker("first", recorder(&calls, "first"))
	s.AddChecker("failing", func(ctx context.Context, s *Session) error {
		calls = append(calls, "failing")
		return pageErr
	})
	s.AddChecker("last", recorder(&calls, "last"))

	err := s.Wait(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCheckerFailed)
	assert.ErrorIs(t, err, pageErr)
	assert.Contains(t, err.Error(), "failing")
	assert.Equal(t, []string{"first", "failing"}, calls)
}

func TestCheckers_SeeSettledPage(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser(testutil.Page{URL: pageB, Title: "B"})
	b.OpenWindow(pageA)
	s := newSession(t, b)

	var seen string
	s.AddChecker("title", func(ctx context.Context, s *Session) error {
		seen = s.Window().Title
		return nil
	})

	require.NoError(t, s.Goto(context.Background(), pageB))
	assert.Equal(t, "B", seen)
}
