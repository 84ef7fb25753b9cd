package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/compte/internal/cli"
	"github.com/theirongolddev/compte/internal/config"
	"github.com/theirongolddev/compte/internal/server"
)

type serverRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"startedAt"`
	ClaudeDir string    `json:"claudeDir"`
}

var (
	flagServeAddr         string
	flagServePort         int
	flagServeInterval     time.Duration
	flagServeNoOpen       bool
	flagServeDetach       bool
	flagServePIDFile      string
	flagServeLogFile      string
	flagServeEventsBuffer int
	flagServeChild        bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve usage analytics over HTTP (JSON, SSE, and Prometheus metrics)",
	RunE:  runServe,
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server process and API status",
	RunE:  runServeStatus,
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE:  runServeStop,
}

func init() {
	pf := serveCmd.PersistentFlags()
	pf.StringVar(&flagServeAddr, "addr", "", "HTTP listen address (default from config, "+server.DefaultAddr+")")
	pf.IntVar(&flagServePort, "port", 0, "Listen on this port on the configured host")
	pf.StringVar(&flagServePIDFile, "pid-file", filepath.Join(config.CacheDir(), "compte-serve.pid"), "PID file path")

	f := serveCmd.Flags()
	f.DurationVar(&flagServeInterval, "interval", 0, "Background rescan interval (0 = rescan on ?refresh=true only)")
	f.BoolVar(&flagServeNoOpen, "no-open", false, "Don't open the dashboard in a browser")
	f.BoolVar(&flagServeDetach, "detach", false, "Run the server as a background process")
	f.StringVar(&flagServeLogFile, "log-file", filepath.Join(config.CacheDir(), "compte-serve.log"), "Log file for detached mode")
	f.IntVar(&flagServeEventsBuffer, "events-buffer", 200, "Max in-memory events retained")
	f.BoolVar(&flagServeChild, "child", false, "Internal: mark detached child process")
	_ = f.MarkHidden("child")

	serveCmd.AddCommand(serveStatusCmd, serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

// listenAddr merges --addr, --port and the config file.
func listenAddr() (string, error) {
	addr := flagServeAddr
	if addr == "" {
		addr = appCfg.Server.Addr
	}
	if addr == "" {
		addr = server.DefaultAddr
	}
	if flagServePort != 0 {
		if flagServePort < 0 || flagServePort > 65535 {
			return "", fmt.Errorf("--port %d out of range", flagServePort)
		}
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		addr = host + ":" + strconv.Itoa(flagServePort)
	}
	return addr, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	if flagServeDetach && flagServeChild {
		return errors.New("invalid server launch mode")
	}
	addr, err := listenAddr()
	if err != nil {
		return err
	}
	if flagServeDetach {
		return startServerDetached(addr)
	}
	return runServerForeground(addr)
}

func startServerDetached(addr string) error {
	if err := ensureServerNotRunning(flagServePIDFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := append(filterDetachArg(os.Args[1:]), "--child", "--no-open")

	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagServeLogFile), 0o750); err != nil {
		return fmt.Errorf("create server log directory: %w", err)
	}

	logf, err := os.OpenFile(flagServeLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open server log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...)
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()

	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached server: %w", err)
	}

	fmt.Printf("  Started server (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagServePIDFile)
	fmt.Printf("  API: http://%s/api/usage\n", addr)
	fmt.Printf("  Log: %s\n", flagServeLogFile)
	return nil
}

func runServerForeground(addr string) error {
	if err := ensureServerNotRunning(flagServePIDFile); err != nil {
		return err
	}

	cache, release := openCache()
	defer release()

	interval := flagServeInterval
	if interval == 0 && appCfg.Server.PollIntervalSec > 0 {
		interval = time.Duration(appCfg.Server.PollIntervalSec) * time.Second
	}

	svc := server.New(server.Config{
		ClaudeDir:     flagDataDir,
		Cache:         cache,
		Pricing:       appCfg.PricingTable(),
		Days:          flagDays,
		ProjectFilter: flagProject,
		ModelFilter:   flagModel,
		Interval:      interval,
		Addr:          addr,
		StaticDir:     appCfg.Server.StaticDir,
		EventsBuffer:  flagServeEventsBuffer,
		Logger:        slog.Default(),
	})

	ln, err := svc.Listen()
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port already in use: %s is taken, pick another with --port or stop the other process", addr)
		}
		return err
	}

	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		_ = ln.Close()
		return fmt.Errorf("create server directory: %w", err)
	}
	pid := os.Getpid()
	if err := writePID(flagServePIDFile, pid); err != nil {
		_ = ln.Close()
		return err
	}
	defer func() { _ = os.Remove(flagServePIDFile) }()

	_ = writeState(statePath(flagServePIDFile), serverRuntimeState{
		PID:       pid,
		Addr:      addr,
		StartedAt: time.Now(),
		ClaudeDir: flagDataDir,
	})
	defer func() { _ = os.Remove(statePath(flagServePIDFile)) }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	url := "http://" + addr + "/"
	fmt.Printf("  compte serving on %s\n", url)
	if interval > 0 {
		fmt.Printf("  Rescanning every %s from %s\n", interval, flagDataDir)
	} else {
		fmt.Printf("  Reading %s (GET /api/usage?refresh=true to rescan)\n", flagDataDir)
	}
	fmt.Printf("  Press Ctrl+C to stop\n")

	go func() {
		if _, err := svc.Current(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("initial scan failed", "err", err)
		}
	}()

	if !flagServeNoOpen && !flagServeChild && appCfg.Server.OpenBrowser {
		if err := openBrowser(url); err != nil {
			slog.Debug("could not open browser", "err", err)
		}
	}

	if err := svc.Serve(ctx, ln); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openBrowser(url string) error {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		c = exec.Command("xdg-open", url)
	}
	return c.Start()
}

func runServeStatus(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagServePIDFile)
	if err != nil {
		fmt.Printf("  Server: not running (pid file not found)\n")
		return nil
	}
	if !processAlive(pid) {
		fmt.Printf("  Server: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr, err := listenAddr()
	if err != nil {
		return err
	}
	if st, err := readState(statePath(flagServePIDFile)); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	fmt.Printf("  Server PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/status")
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st server.Status
	if err := json.UnmarshalRead(resp.Body, &st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	pairs := [][2]string{{"Scans", cli.FormatNumber(st.ScanCount)}}
	if st.LastScanAt.IsZero() {
		pairs = append(pairs, [2]string{"Last scan", "pending"})
	} else {
		pairs = append(pairs, [2]string{"Last scan", st.LastScanAt.Local().Format(time.RFC3339)})
	}
	pairs = append(pairs,
		[2]string{"Sessions", cli.FormatNumber(int64(st.Summary.Sessions))},
		[2]string{"Tokens", cli.FormatTokens(st.Summary.Tokens)},
		[2]string{"Cost", cli.FormatCost(st.Summary.CostUSD)},
		[2]string{"Subscribers", strconv.Itoa(st.SubscriberCount)},
	)
	if st.LastError != "" {
		pairs = append(pairs, [2]string{"Last error", st.LastError})
	}
	fmt.Print(cli.RenderKeyValues(pairs))
	return nil
}

func runServeStop(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagServePIDFile)
	if err != nil {
		return errors.New("server is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find server process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal server process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagServePIDFile)
			_ = os.Remove(statePath(flagServePIDFile))
			fmt.Printf("  Stopped server (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("server (pid %d) did not exit in time", pid)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureServerNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("server already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	_ = os.Remove(statePath(pidFile))
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func statePath(pidFile string) string {
	return pidFile + ".json"
}

func writeState(path string, st serverRuntimeState) error {
	data, err := json.Marshal(st, jsontext.WithIndent("  "))
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readState(path string) (serverRuntimeState, error) {
	var st serverRuntimeState
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}
