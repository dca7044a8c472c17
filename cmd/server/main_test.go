package main

import (
	"flag"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"
	"time"

	"tradedesk/internal/config"
	"tradedesk/pkg/tradedesk"
)

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	if !dirExists(dir) {
		t.Fatalf("expected dir to exist")
	}
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if dirExists(file) {
		t.Fatalf("expected file to not be dir")
	}
	if dirExists(filepath.Join(dir, "missing")) {
		t.Fatalf("expected missing path to be false")
	}
}

func TestResolveWebDir(t *testing.T) {
	tmp := t.TempDir()
	staticDir := filepath.Join(tmp, "static")
	if err := os.MkdirAll(staticDir, 0o755); err != nil {
		t.Fatalf("mkdir static: %v", err)
	}

	if got := resolveWebDir(staticDir); got != staticDir {
		t.Fatalf("expected input dir, got %q", got)
	}
	if got := resolveWebDir(filepath.Join(tmp, "missing")); got != "" {
		t.Fatalf("expected empty for missing, got %q", got)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer func() {
		_ = os.Chdir(cwd)
	}()

	if got := resolveWebDir(""); got != "static" {
		t.Fatalf("expected static, got %q", got)
	}
}

func TestWatchParentExits(t *testing.T) {
	origGetppid := getppid
	origSleep := sleep
	origExit := exit
	defer func() {
		getppid = origGetppid
		sleep = origSleep
		exit = origExit
	}()

	getppid = func() int { return 1 }
	sleep = func(time.Duration) {}

	done := make(chan struct{})
	exit = func(code int) {
		close(done)
		runtime.Goexit()
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	go watchParent(logger)

	select {
	case <-done:
		// ok
	case <-time.After(1 * time.Second):
		t.Fatalf("watchParent did not exit")
	}
}

func TestOpenKVSelectsDriver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	cfg := config.Config{KV: config.KVConfig{Driver: config.DriverSQLite}}
	kv, info, err := openKV(cfg, dir, logger)
	if err != nil {
		t.Fatalf("open sqlite kv: %v", err)
	}
	defer kv.Close()
	if info.DBPath != filepath.Join(dir, config.DBFileName) || info.KVDriver != config.DriverSQLite {
		t.Fatalf("unexpected storage info: %+v", info)
	}

	cfg.KV.Driver = config.DriverMemory
	kv, info, err = openKV(cfg, dir, logger)
	if err != nil {
		t.Fatalf("open memory kv: %v", err)
	}
	if _, ok := kv.(*tradedesk.MemoryKV); !ok || info.DBPath != "" {
		t.Fatalf("expected memory kv, got %T %+v", kv, info)
	}

	cfg.Remote = config.RemoteConfig{URL: "https://example.supabase.co", Key: "anon"}
	kv, _, err = openKV(cfg, dir, logger)
	if err != nil || kv != nil {
		t.Fatalf("expected no kv with remote storage, got %v %v", kv, err)
	}
}

func TestMainLifecycle(t *testing.T) {
	tmp := t.TempDir()
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"BTC":{"USD":65000},"ETH":{"USD":3500}}`))
	}))
	defer feed.Close()
	t.Setenv("TRADEDESK_PRICES_FEED_URL", feed.URL)
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")

	origArgs := os.Args
	origCommandLine := flag.CommandLine
	defer func() {
		os.Args = origArgs
		flag.CommandLine = origCommandLine
	}()

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flag.CommandLine.SetOutput(io.Discard)
	os.Args = []string{
		"server",
		"--data-dir", tmp,
		"--port", "0",
		"--host", "127.0.0.1",
	}

	done := make(chan struct{})
	go func() {
		time.Sleep(150 * time.Millisecond)
		if p, err := os.FindProcess(os.Getpid()); err == nil {
			_ = p.Signal(syscall.SIGTERM)
		}
	}()

	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
		// ok
	case <-time.After(3 * time.Second):
		t.Fatalf("main did not exit")
	}

	if !dirExists(filepath.Join(tmp, "logs")) {
		t.Fatalf("expected log directory in data dir")
	}
	if _, err := os.Stat(filepath.Join(tmp, config.DBFileName)); err != nil {
		t.Fatalf("expected sqlite file: %v", err)
	}
}
