package firefox

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/foxcap/internal/jssh"
	"github.com/tomyan/foxcap/internal/script"
	"github.com/tomyan/foxcap/internal/testutil"
)

func serve(t *testing.T, b *testutil.Browser) Options {
	t.Helper()
	host, err := testutil.StartHost(b.Handle)
	require.NoError(t, err)
	t.Cleanup(func() { host.Stop() })

	opts := testOptions()
	opts.Channel = jssh.Options{Host: "127.0.0.1", Port: host.Port, DialTimeout: time.Second}
	return opts
}

func TestConnect_OverTCP(t *testing.T) {
	t.Parallel()

	b := siteBrowser()
	b.OpenWindow(pageA)
	ctx := context.Background()

	s, err := Connect(ctx, serve(t, b))
	require.NoError(t, err)
	assert.Equal(t, Window{Index: 0, URL: pageA, Title: "A"}, s.Window())

	require.NoError(t, s.Goto(ctx, pageB))
	assert.Equal(t, "B", s.Window().Title)

	text, err := s.Text(ctx)
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 0, b.WindowCount())
}

func TestAttachTo(t *testing.T) {
	t.Parallel()

	b := siteBrowser()
	b.OpenWindow(pageA)
	b.OpenWindow(pageC)

	s, err := AttachTo(context.Background(), serve(t, b), ByTitle, script.Literal("A"))
	require.NoError(t, err)
	defer s.Disconnect()

	assert.Equal(t, 0, s.Window().Index)
}

func TestAttachTo_NoMatch(t *testing.T) {
	t.Parallel()

	b := siteBrowser()
	b.OpenWindow(pageA)

	_, err := AttachTo(context.Background(), serve(t, b), ByURL, script.MustPattern(`nowhere`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatchingWindow)
}

func TestConnect_HostUnavailable(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	opts := testOptions()
	opts.Channel = jssh.Options{Host: "127.0.0.1", Port: port, MaxAttempts: 2, DialTimeout: time.Second}

	_, err = Connect(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, jssh.ErrHostUnavailable)
}

func TestLaunch_ConnectsToRunningHost(t *testing.T) {
	t.Parallel()

	b := siteBrowser()
	b.OpenWindow(pageA)

	s, err := Launch(context.Background(), serve(t, b))
	require.NoError(t, err)
	defer s.Disconnect()

	assert.Nil(t, s.Launched())
	assert.Equal(t, pageA, s.Window().URL)
}

func TestStart_NavigatesRunningHost(t *testing.T) {
	t.Parallel()

	b := siteBrowser()
	b.OpenWindow(pageA)

	s, err := Start(context.Background(), pageC, serve(t, b))
	require.NoError(t, err)
	defer s.Disconnect()

	assert.Equal(t, pageC, s.Window().URL)
}

func TestConnect_ErrorShapedTitleOverTCP(t *testing.T) {
	t.Parallel()

	const title = "TypeError: x is undefined - Stack Overflow"
	b := testutil.NewBrowser(
		testutil.Page{URL: pageA, Title: "A"},
		testutil.Page{URL: pageB, Title: title, Text: "line one\nline two"},
	)
	b.OpenWindow(pageA)
	ctx := context.Background()

	s, err := Connect(ctx, serve(t, b))
	require.NoError(t, err)
	defer s.Disconnect()

	require.NoError(t, s.Goto(ctx, pageB))
	assert.Equal(t, title, s.Window().Title)

	text, err := s.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", text)
}
