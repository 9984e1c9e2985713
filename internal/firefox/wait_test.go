package firefox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/foxcap/internal/jssh"
	"github.com/tomyan/foxcap/internal/testutil"
)

const refreshQuery = "getElementsByTagName('meta')"

func TestWait_FollowsMetaRefresh(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser(
		testutil.Page{URL: pageA, Title: "A", Refresh: &testutil.Refresh{Delay: 0, Target: pageB}},
		testutil.Page{URL: pageB, Title: "B", LoadPolls: 2},
	)
	b.OpenWindow(pageA)
	s := newSession(t, b)

	iterations, err := s.waitFrom(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 2, iterations)
	assert.Equal(t, pageB, s.Window().URL)
	assert.Equal(t, "B", s.Window().Title)
	assert.Equal(t, 2, b.CountScripts(refreshQuery))
}

func TestWait_SameURLSkipsRefreshCheck(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser(
		testutil.Page{URL: pageA, Refresh: &testutil.Refresh{Target: pageB}},
	)
	b.OpenWindow(pageA)
	s := newSession(t, b)

	iterations, err := s.waitFrom(context.Background(), pageA)
	require.NoError(t, err)

	assert.Equal(t, 1, iterations)
	assert.Equal(t, 0, b.CountScripts(refreshQuery))
	assert.Equal(t, pageA, s.Window().URL)
}

func TestWait_RefreshThatLeavesDocumentInPlace(t *testing.T) {
	t.Parallel()

	// A refresh to a download never replaces the document.
	b := testutil.NewBrowser(
		testutil.Page{URL: pageA, Refresh: &testutil.Refresh{Target: "http://example.test/file.zip", Stuck: true}},
	)
	b.OpenWindow(pageA)
	s := newSession(t, b)

	iterations, err := s.waitFrom(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 2, iterations)
	assert.Equal(t, 1, b.CountScripts(refreshQuery))
}

func TestWait_RefreshToSelfIsIgnored(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser(
		testutil.Page{URL: pageA, Refresh: &testutil.Refresh{Delay: 5, Target: "/a"}},
	)
	b.OpenWindow(pageA)
	s := newSession(t, b)

	iterations, err := s.waitFrom(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, iterations)
}

func TestWait_RedirectHopLimit(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser(
		testutil.Page{URL: pageA, Refresh: &testutil.Refresh{Target: pageB}},
		testutil.Page{URL: pageB, Refresh: &testutil.Refresh{Target: pageA}},
	)
	b.OpenWindow(pageA)

	opts := testOptions()
	opts.MaxRedirects = 3
	s, err := NewSession(context.Background(), b, opts)
	require.NoError(t, err)

	iterations, err := s.waitFrom(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 4, iterations)
}

func TestWait_Timeout(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser(testutil.Page{URL: pageB, LoadPolls: 1 << 30})
	b.OpenWindow(pageA)

	opts := testOptions()
	opts.WaitTimeout = 30 * time.Millisecond
	s, err := NewSession(context.Background(), b, opts)
	require.NoError(t, err)

	err = s.Goto(context.Background(), pageB)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNavigationTimeout)

	var te *NavigationTimeoutError
	require.ErrorAs(t, err, &te)
	assert.GreaterOrEqual(t, te.Elapsed, 30*time.Millisecond)
}

func TestWait_ScriptErrorsWhilePollingKeepPolling(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser()
	b.OpenWindow(pageA)
	ev := &faultyEvaluator{
		Browser: b,
		match:   "isLoadingDocument",
		err:     &jssh.ScriptError{Name: "TypeError", Message: "webProgress is null"},
		times:   3,
	}
	s := newSession(t, ev)

	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, 3, ev.hits)
	assert.Equal(t, 1, b.CountScripts("isLoadingDocument"))
}

func TestWait_ChannelErrorAborts(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser()
	b.OpenWindow(pageA)
	ev := &faultyEvaluator{
		Browser: b,
		match:   "isLoadingDocument",
		err:     jssh.ErrConnectionClosed,
		times:   1,
	}
	s := newSession(t, ev)

	err := s.Wait(context.Background())
	assert.ErrorIs(t, err, jssh.ErrConnectionClosed)
}

func TestWait_RefreshCheckFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser(testutil.Page{URL: pageA, Title: "A"})
	b.OpenWindow(pageA)
	ev := &faultyEvaluator{
		Browser: b,
		match:   refreshQuery,
		err:     &jssh.ScriptError{Name: "TypeError", Message: "doc is null"},
		times:   1,
	}
	s := newSession(t, ev)

	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, 1, ev.hits)
	assert.Equal(t, "A", s.Window().Title)
}

func TestWait_ContextCancelled(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser(testutil.Page{URL: pageB, LoadPolls: 1 << 30})
	b.OpenWindow(pageA)
	s := newSession(t, b)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Goto(ctx, pageB)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestSleepCtx(t *testing.T) {
	t.Parallel()

	assert.NoError(t, sleepCtx(context.Background(), 0))
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}

func TestWaitFrom_PreviousURL(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser(
		testutil.Page{URL: pageA, Title: "A", Refresh: &testutil.Refresh{Target: pageB}},
		testutil.Page{URL: pageB, Title: "B"},
	)
	b.OpenWindow(pageA)
	s := newSession(t, b)
	ctx := context.Background()

	var calls []string
	s.AddChecker("after", recorder(&calls, "after"))

	require.NoError(t, s.WaitFrom(ctx, pageA))
	assert.Equal(t, 0, b.CountScripts(refreshQuery))
	assert.Equal(t, pageA, s.Window().URL)
	assert.Equal(t, []string{"after"}, calls)

	// Any other previous URL lets the refresh through.
	require.NoError(t, s.WaitFrom(ctx, pageC))
	assert.Equal(t, 2, b.CountScripts(refreshQuery))
	assert.Equal(t, pageB, s.Window().URL)
	assert.Equal(t, []string{"after", "after"}, calls)
}
