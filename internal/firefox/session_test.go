package firefox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/foxcap/internal/jssh"
	"github.com/tomyan/foxcap/internal/testutil"
)

const (
	pageA = "http://example.test/a"
	pageB = "http://example.test/b"
	pageC = "http://example.test/c"
)

func testOptions() Options {
	return Options{
		PollInterval: time.Millisecond,
		CloseTimeout: 100 * time.Millisecond,
		WaitTimeout:  5 * time.Second,
	}
}

func newSession(t *testing.T, ev Evaluator) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), ev, testOptions())
	require.NoError(t, err)
	return s
}

// faultyEvaluator fails scripts containing match with err, a limited
// number of times.
type faultyEvaluator struct {
	*testutil.Browser

	mu    sync.Mutex
	match string
	err   error
	times int
	hits  int
}

func (f *faultyEvaluator) Eval(ctx context.Context, src string) (string, error) {
	f.mu.Lock()
	if f.times > 0 && strings.Contains(src, f.match) {
		f.times--
		f.hits++
		f.mu.Unlock()
		return "", f.err
	}
	f.mu.Unlock()
	return f.Browser.Eval(ctx, src)
}

func TestNewSession_BindsMostRecentBrowserWindow(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser(
		testutil.Page{URL: pageA, Title: "A"},
		testutil.Page{URL: pageB, Title: "B"},
	)
	b.OpenWindow(pageA)
	b.OpenWindow(pageB)
	b.OpenUtilityWindow()

	s := newSession(t, b)

	assert.Equal(t, Window{Index: 1, URL: pageB, Title: "B"}, s.Window())
	idx, ok := b.Bound(s.Names().Prefix)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestNewSession_NamesAreSessionScoped(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser()
	b.OpenWindow("about:blank")

	s1 := newSession(t, b)
	s2 := newSession(t, b)

	n := s1.Names()
	assert.Len(t, n.Prefix, 10)
	assert.True(t, strings.HasPrefix(n.Prefix, "fx"))
	assert.Equal(t, n.Prefix+"_win", n.Win)
	assert.Equal(t, n.Prefix+"_browser", n.Browser)
	assert.Equal(t, n.Prefix+"_doc", n.Doc)
	assert.Equal(t, n.Prefix+"_body", n.Body)
	assert.NotEqual(t, s1.Names().Prefix, s2.Names().Prefix)
	assert.NotEqual(t, s1.ID(), s2.ID())
}

func TestNewSession_ChannelErrorFails(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser()
	b.OpenWindow("about:blank")
	b.Close()

	_, err := NewSession(context.Background(), b, testOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, jssh.ErrConnectionClosed)
}

func TestNames_Expand(t *testing.T) {
	t.Parallel()

	n := Names{Prefix: "fx1", Win: "fx1_win", Browser: "fx1_browser", Doc: "fx1_doc", Body: "fx1_body", Listener: "fx1_listener", Popup: "fx1_popup"}
	got := n.expand("$browser = $win.getBrowser(); $doc.URL + $body.id + $listener + $popup")
	assert.Equal(t, "fx1_browser = fx1_win.getBrowser(); fx1_doc.URL + fx1_body.id + fx1_listener + fx1_popup", got)
}

func TestSession_Eval(t *testing.T) {
	t.Parallel()

	b := testutil.NewBrowser()
	b.OpenWindow("about:blank")
	b.Fallback = func(src string) (string, error) {
		if src == "navigator.userAgent" {
			return "Mozilla/5.0", nil
		}
		return "", errors.New("unexpected")
	}
	s := newSession(t, b)

	got, err := s.Eval(context.Background(), "navigator.userAgent")
	require.NoError(t, err)
	assert.Equal(t, "Mozilla/5.0", got)
}
