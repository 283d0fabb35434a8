package preview

import (
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jsdocpreview/internal/metrics"
	"git.home.luguber.info/inful/jsdocpreview/internal/push"
)

func startServer(t *testing.T, root string) (*Server, string) {
	t.Helper()
	s := New(Options{Root: root})
	url, err := s.Start(t.Context(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, url
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test URL
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func dial(t *testing.T, base string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(base, "http")+SocketPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServesPlaceholderWhenIndexMissing(t *testing.T) {
	_, url := startServer(t, t.TempDir())

	status, body := get(t, url+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Documentation is being generated")
}

func TestServesInjectedIndexAndFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html><head></head><body>home</body></html>"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "module"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "module", "index.html"), []byte("<p>module</p>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.js"), []byte("var x = 1;"), 0o600))
	_, url := startServer(t, root)

	status, body := get(t, url+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "home")
	assert.Contains(t, body, StylePath)
	assert.Contains(t, body, ScriptPath)

	_, body = get(t, url+"/module/")
	assert.Contains(t, body, "module")
	assert.Contains(t, body, ScriptPath)

	_, body = get(t, url+"/app.js")
	assert.Equal(t, "var x = 1;", body)
}

func TestMissingFileIs404(t *testing.T) {
	_, url := startServer(t, t.TempDir())

	status, body := get(t, url+"/nope.html")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not Found", body)
}

func TestTraversalIsRejected(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "www")
	require.NoError(t, os.MkdirAll(root, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("secret"), 0o600))
	_, url := startServer(t, root)

	status, body := get(t, url+"/%2e%2e/secret.txt")
	assert.NotEqual(t, "secret", body)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestEmbeddedAssets(t *testing.T) {
	_, url := startServer(t, t.TempDir())

	status, body := get(t, url+ScriptPath)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "reload-jsdoc")

	status, body = get(t, url+StylePath)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, ".preview-jsdoc-loading-box")
}

func TestSetRootSwapsServedDirectory(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(first, "page.txt"), []byte("one"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(second, "page.txt"), []byte("two"), 0o600))
	s, url := startServer(t, first)

	_, body := get(t, url+"/page.txt")
	assert.Equal(t, "one", body)

	s.SetRoot(second)
	assert.Equal(t, second, s.Root())
	_, body = get(t, url+"/page.txt")
	assert.Equal(t, "two", body)
}

func TestBroadcastReachesClients(t *testing.T) {
	s, url := startServer(t, t.TempDir())
	conn := dial(t, url)

	require.Eventually(t, s.HasActiveConnection, 2*time.Second, 10*time.Millisecond)

	s.NotifyWillCompute()
	s.NotifyLog(push.KindLogInfo, "Parsing src/a.js")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	ev, err := push.ParseFrame(msg)
	require.NoError(t, err)
	assert.Equal(t, push.KindWillCompute, ev.Kind)

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	ev, err = push.ParseFrame(msg)
	require.NoError(t, err)
	assert.Equal(t, push.LogInfo("Parsing src/a.js"), ev)
}

func TestClientDisconnectIsTracked(t *testing.T) {
	s, url := startServer(t, t.TempDir())
	conn := dial(t, url)
	require.Eventually(t, func() bool { return s.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_ = conn.Close()
	require.Eventually(t, func() bool { return s.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCloseReleasesPortAndClients(t *testing.T) {
	s, url := startServer(t, t.TempDir())
	port := s.Port()
	conn := dial(t, url)
	require.Eventually(t, s.HasActiveConnection, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.False(t, s.Running())
	assert.Zero(t, s.ConnectionCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	again, err := s.Start(t.Context(), port)
	require.NoError(t, err)
	assert.Equal(t, port, s.Port())
	status, _ := get(t, again+ScriptPath)
	assert.Equal(t, http.StatusOK, status)
}

func TestCloseFreesPortImmediately(t *testing.T) {
	s := New(Options{Root: t.TempDir()})
	for range 50 {
		_, err := s.Start(t.Context(), 0)
		require.NoError(t, err)
		port := s.Port()
		require.NoError(t, s.Close())

		ln, err := net.Listen("tcp", net.JoinHostPort(listenHost, strconv.Itoa(port)))
		require.NoError(t, err, "port %d still bound after Close", port)
		require.NoError(t, ln.Close())
	}
}

func TestRestartKeepsSamePort(t *testing.T) {
	s, _ := startServer(t, t.TempDir())
	port := s.Port()

	_, err := s.Restart(t.Context(), port)
	require.NoError(t, err)
	assert.Equal(t, port, s.Port())
}

func TestStartSkipsBusyPort(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = busy.Close() }()
	busyPort := busy.Addr().(*net.TCPAddr).Port

	s := New(Options{Root: t.TempDir()})
	url, err := s.Start(t.Context(), busyPort)
	if err != nil {
		t.Skipf("no free port near %d: %v", busyPort, err)
	}
	defer func() { _ = s.Close() }()

	assert.Greater(t, s.Port(), busyPort)
	assert.Less(t, s.Port(), busyPort+PortAttempts)
	assert.True(t, strings.HasSuffix(url, ":"+strconv.Itoa(s.Port())))
}

func TestRestartRebinds(t *testing.T) {
	s, _ := startServer(t, t.TempDir())

	url, err := s.Restart(t.Context(), 0)
	require.NoError(t, err)
	assert.NotEmpty(t, url)
	assert.True(t, s.Running())
	assert.NotZero(t, s.Port())
}

func TestMetricsRoute(t *testing.T) {
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	s := New(Options{Root: t.TempDir(), Registry: reg, Recorder: rec})
	url, err := s.Start(t.Context(), 0)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	s.NotifyDidCompute()
	status, body := get(t, url+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "jsdocpreview_push_broadcasts_total")
}
