package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"indicadores/internal/backend"
	"indicadores/internal/catalog"
	"indicadores/internal/config"
	"indicadores/internal/history"
	"indicadores/internal/logging"
	"indicadores/internal/metrics"
)

// echoBackend answers with the sum of the numbers and the indicators it got.
func echoBackend(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != backend.TestIndicatorsPath {
			http.NotFound(w, r)
			return
		}
		var req backend.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sum := 0
		for _, n := range req.Dezenas {
			sum += n
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"soma": sum, "indicadores": req.Indicadores})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func setupTestApp(t *testing.T, baseURL string) {
	t.Helper()
	c := config.DefaultConfig()
	c.Backend.BaseURL = baseURL
	c.Backend.Timeout = "2s"
	cfg = c
	loggers = logging.NewNop()
	logger = zap.NewNop()
	registry = prometheus.NewRegistry()
	recorder = metrics.NewPrometheusRecorder(registry)

	t.Cleanup(func() {
		checkDezenas, checkIndicators = "", nil
		checkJSON, checkRender = false, false
		batchIndicators, batchConcurrency = nil, 0
		watchIndicators, watchDebounce = nil, 0
		catalogJSON, configForce = false, false
		configPath = ""
	})
}

func testCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(context.Background())
	return cmd, &out
}

// syncBuffer is a bytes.Buffer safe for writers on other goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func decodeBatch(t *testing.T, out *bytes.Buffer) []batchLine {
	t.Helper()
	var got []batchLine
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var bl batchLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &bl))
		got = append(got, bl)
	}
	return got
}

func TestRunCheck(t *testing.T) {
	srv, calls := echoBackend(t)
	setupTestApp(t, srv.URL)

	checkDezenas = "5, 10 abc 15"
	checkIndicators = []string{catalog.Primos, catalog.Quadrantes}

	cmd, out := testCmd()
	require.NoError(t, runCheck(cmd, nil))

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Contains(t, out.String(), `"soma": 30`)
	series, err := testutil.GatherAndCount(registry, "indicadores_submissions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestRunCheck_JSON(t *testing.T) {
	srv, _ := echoBackend(t)
	setupTestApp(t, srv.URL)

	checkDezenas = "1 2"
	checkIndicators = []string{catalog.Fibonacci}
	checkJSON = true

	cmd, out := testCmd()
	require.NoError(t, runCheck(cmd, nil))

	var entry history.Entry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "success", entry.Outcome)
	assert.Equal(t, []int{1, 2}, entry.Numbers)
	assert.Equal(t, []string{catalog.Fibonacci}, entry.Indicators)
	assert.JSONEq(t, `{"soma":3,"indicadores":["fibonacci"]}`, entry.Payload.String())
}

func TestRunCheck_UnknownIndicator(t *testing.T) {
	srv, calls := echoBackend(t)
	setupTestApp(t, srv.URL)

	checkIndicators = []string{"astrologia"}
	cmd, _ := testCmd()
	err := runCheck(cmd, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "astrologia")
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestRunCheck_BackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()
	setupTestApp(t, srv.URL)

	checkDezenas = "3"
	cmd, out := testCmd()
	err := runCheck(cmd, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrDecodeFailed)
	assert.Contains(t, err.Error(), "decode_failed")
	assert.Empty(t, out.String())
}

func TestRunBatch(t *testing.T) {
	srv, calls := echoBackend(t)
	setupTestApp(t, srv.URL)

	path := filepath.Join(t.TempDir(), "jogos.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 2 3\n\n10,20\n  \n7\n"), 0644))

	batchIndicators = []string{catalog.Primos}
	batchConcurrency = 2

	cmd, out := testCmd()
	require.NoError(t, runBatch(cmd, []string{path}))
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))

	got := decodeBatch(t, out)
	require.Len(t, got, 3)

	wantLines := []int{1, 3, 5}
	wantSums := []string{`"soma":6`, `"soma":30`, `"soma":7`}
	for i, bl := range got {
		assert.Equal(t, wantLines[i], bl.Line)
		assert.Equal(t, "success", bl.Outcome)
		assert.Contains(t, bl.Payload.String(), wantSums[i])
	}
}

func TestRunBatch_KeepsInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req backend.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Dezenas) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.Dezenas[0] == 1 {
			select {
			case <-time.After(200 * time.Millisecond):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"primeira": req.Dezenas[0]})
	}))
	defer srv.Close()
	setupTestApp(t, srv.URL)

	batchConcurrency = 3
	cmd, out := testCmd()
	cmd.SetIn(strings.NewReader("1\n2\n3\n"))
	require.NoError(t, runBatch(cmd, []string{"-"}))

	got := decodeBatch(t, out)
	require.Len(t, got, 3)
	for i, bl := range got {
		assert.Equal(t, i+1, bl.Line)
		assert.Equal(t, []int{i + 1}, bl.Numbers)
	}
	// The first line finished last but is still printed first.
	assert.True(t, got[0].At.After(got[1].At))
	assert.True(t, got[0].At.After(got[2].At))
}

func TestRunBatch_LongLine(t *testing.T) {
	srv, _ := echoBackend(t)
	setupTestApp(t, srv.URL)

	line := "7" + strings.Repeat(" ", 100*1024) + "8"
	cmd, out := testCmd()
	cmd.SetIn(strings.NewReader(line + "\n"))
	require.NoError(t, runBatch(cmd, []string{"-"}))

	got := decodeBatch(t, out)
	require.Len(t, got, 1)
	assert.Equal(t, []int{7, 8}, got[0].Numbers)
	assert.Contains(t, got[0].Payload.String(), `"soma":15`)

	_, err := readLines(strings.NewReader(strings.Repeat("1", maxBatchLine+1)), "-")
	assert.Error(t, err)
}

func TestRunBatch_Stdin(t *testing.T) {
	srv, _ := echoBackend(t)
	setupTestApp(t, srv.URL)

	cmd, out := testCmd()
	cmd.SetIn(strings.NewReader("4 4\n"))
	require.NoError(t, runBatch(cmd, []string{"-"}))
	assert.Contains(t, out.String(), `"raw":"4 4"`)
}

func TestRunBatch_EmptyInput(t *testing.T) {
	srv, calls := echoBackend(t)
	setupTestApp(t, srv.URL)

	cmd, _ := testCmd()
	cmd.SetIn(strings.NewReader("\n \n"))
	err := runBatch(cmd, []string{"-"})
	assert.ErrorIs(t, err, errNoInput)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestRunWatch_PrintsOnlyLatest(t *testing.T) {
	firstSeen := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req backend.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got := strings.Trim(strings.ReplaceAll(fmt.Sprint(req.Dezenas), " ", ","), "[]")
		if got == "1,2" {
			once.Do(func() { close(firstSeen) })
			select {
			case <-time.After(5 * time.Second):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"got": got})
	}))
	defer srv.Close()
	setupTestApp(t, srv.URL)

	path := filepath.Join(t.TempDir(), "jogo.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 2"), 0644))
	watchIndicators = []string{catalog.Primos}
	watchDebounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out syncBuffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- runWatch(cmd, []string{path}) }()

	select {
	case <-firstSeen:
	case <-time.After(5 * time.Second):
		t.Fatal("first submission never reached the backend")
	}
	require.NoError(t, os.WriteFile(path, []byte("5 6"), 0644))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"got": "5,6"`)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runWatch did not stop after cancel")
	}
	assert.NotContains(t, out.String(), "1,2")
}

func TestRunWatch_InvalidDebounce(t *testing.T) {
	srv, calls := echoBackend(t)
	setupTestApp(t, srv.URL)

	assert.Error(t, watchCmd.Flags().Set("debounce", "5"))

	watchDebounce = -time.Second
	cmd, _ := testCmd()
	err := runWatch(cmd, []string{filepath.Join(t.TempDir(), "jogo.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--debounce")
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestRunCatalog_JSON(t *testing.T) {
	setupTestApp(t, "http://localhost:5000")
	catalogJSON = true

	cmd, out := testCmd()
	require.NoError(t, runCatalog(cmd, nil))

	var got []catalog.Indicator
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, catalog.All(), got)
}

func TestRunCatalog_Text(t *testing.T) {
	setupTestApp(t, "http://localhost:5000")

	cmd, out := testCmd()
	require.NoError(t, runCatalog(cmd, nil))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	assert.Len(t, lines, catalog.Len())
	assert.Contains(t, lines[0], catalog.ParesImpares)
	assert.Contains(t, lines[0], "Par/Ímpar")
}

func TestRunConfigInitAndShow(t *testing.T) {
	setupTestApp(t, "http://localhost:5000")
	configPath = filepath.Join(t.TempDir(), "nested", "config.yaml")

	cmd, out := testCmd()
	require.NoError(t, runConfigInit(cmd, nil))
	assert.FileExists(t, configPath)
	assert.Contains(t, out.String(), configPath)

	// Refuses to overwrite without --force.
	assert.Error(t, runConfigInit(cmd, nil))
	configForce = true
	assert.NoError(t, runConfigInit(cmd, nil))

	cmd, out = testCmd()
	require.NoError(t, runConfigShow(cmd, nil))
	assert.Contains(t, out.String(), "base_url: http://localhost:5000")
}

func TestRootCommand_FlagsOverrideConfig(t *testing.T) {
	srv, calls := echoBackend(t)
	setupTestApp(t, "http://unused:1")
	for _, k := range []string{"INDICADORES_BACKEND_URL", "INDICADORES_TIMEOUT", "INDICADORES_METRICS_ADDR", "INDICADORES_LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("backend:\n  base_url: http://file-only:9\n"), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--config", cfgFile, "--backend", srv.URL, "--timeout", "3s", "check", "-d", "9 9", "-i", catalog.Primos})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		backendURL, timeout = "", 0
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Equal(t, srv.URL, cfg.Backend.BaseURL)
	assert.Equal(t, "3s", cfg.Backend.Timeout)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Contains(t, out.String(), `"soma": 18`)
}

func TestConfigShow_BadLogLevel(t *testing.T) {
	setupTestApp(t, "http://localhost:5000")
	t.Setenv("INDICADORES_LOG_LEVEL", "")

	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("logging:\n  level: verbose\n"), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--config", cfgFile, "config", "show"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "level: verbose")
}
