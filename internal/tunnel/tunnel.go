// Package tunnel launches a local media server together with a
// cloudflared quick tunnel and surfaces the public URL it is assigned.
package tunnel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// ErrNoTunnelURL is returned when cloudflared exits without ever
// printing a public URL.
var ErrNoTunnelURL = errors.New("tunnel: no tunnel URL found")

// urlPattern matches the public URL cloudflared prints when a quick
// tunnel comes up.
var urlPattern = regexp.MustCompile(`https://[a-z0-9-]+\.trycloudflare\.com`)

// defaultReadyMarkers are log lines that signal the media server is
// accepting connections.
var defaultReadyMarkers = []string{
	"Application startup complete",
	"Uvicorn running on",
	"listening",
}

const defaultStartupWait = 30 * time.Second

// ExtractURL returns the first quick-tunnel URL in line, if any.
func ExtractURL(line string) (string, bool) {
	url := urlPattern.FindString(line)
	return url, url != ""
}

// Config holds tunnel runner settings.
type Config struct {
	// ServerCommand starts the local media server, argv style. Leave
	// empty when the server is already running; the runner then only
	// supervises cloudflared.
	ServerCommand []string

	// Port is the local port cloudflared forwards to.
	Port string

	// ReadyMarkers are substrings of server output that signal
	// readiness. Defaults cover common server banners.
	ReadyMarkers []string

	// StartupWait bounds how long to wait for a ready marker before
	// starting the tunnel anyway.
	StartupWait time.Duration

	// OnURL is called once with the public URL when the tunnel is up.
	OnURL func(url string)

	Logger *slog.Logger
}

// Runner supervises the server and tunnel processes as a pair: when
// either exits or the context is cancelled, both are torn down.
type Runner struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a tunnel runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Port == "" {
		cfg.Port = "8000"
	}
	if len(cfg.ReadyMarkers) == 0 {
		cfg.ReadyMarkers = defaultReadyMarkers
	}
	if cfg.StartupWait <= 0 {
		cfg.StartupWait = defaultStartupWait
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Runner{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "tunnel"),
	}, nil
}

// Run starts both processes and blocks until the context is cancelled
// or either process exits.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverDone := make(chan error, 1)

	if len(r.cfg.ServerCommand) > 0 {
		ready := make(chan struct{})

		server := exec.CommandContext(ctx, r.cfg.ServerCommand[0], r.cfg.ServerCommand[1:]...)
		if err := r.startScanned(server, "server", func(line string) {
			select {
			case <-ready:
			default:
				for _, marker := range r.cfg.ReadyMarkers {
					if strings.Contains(line, marker) {
						close(ready)
						return
					}
				}
			}
		}, serverDone); err != nil {
			return fmt.Errorf("tunnel: start server: %w", err)
		}
		r.logger.Info("server starting", "command", r.cfg.ServerCommand[0], "port", r.cfg.Port)

		select {
		case <-ready:
			r.logger.Info("server ready")
		case <-time.After(r.cfg.StartupWait):
			r.logger.Warn("server not confirmed ready, starting tunnel anyway",
				"waited", r.cfg.StartupWait)
		case err := <-serverDone:
			return fmt.Errorf("tunnel: server exited before ready: %w", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	tunnelDone := make(chan error, 1)
	cloudflared := exec.CommandContext(ctx, "cloudflared",
		"tunnel", "--url", "http://localhost:"+r.cfg.Port, "--no-autoupdate")

	urlSeen := false
	if err := r.startScanned(cloudflared, "cloudflared", func(line string) {
		if urlSeen {
			return
		}
		if url, ok := ExtractURL(line); ok {
			urlSeen = true
			r.logger.Info("tunnel up", "url", url)
			if r.cfg.OnURL != nil {
				r.cfg.OnURL(url)
			}
		}
	}, tunnelDone); err != nil {
		return fmt.Errorf("tunnel: start cloudflared: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("tunnel: server exited: %w", err)
		}
		return nil
	case err := <-tunnelDone:
		if err != nil {
			return fmt.Errorf("tunnel: cloudflared exited: %w", err)
		}
		if !urlSeen {
			return ErrNoTunnelURL
		}
		return nil
	}
}

// startScanned starts cmd with stdout and stderr merged through a line
// scanner, feeding each line to fn and echoing it at debug level. The
// exit status lands on done.
func (r *Runner) startScanned(cmd *exec.Cmd, name string, fn func(line string), done chan<- error) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return err
	}

	go func() {
		r.scanLines(stdout, name, fn)
		done <- cmd.Wait()
	}()
	return nil
}

func (r *Runner) scanLines(rd io.Reader, name string, fn func(line string)) {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		r.logger.Debug("process output", "process", name, "line", line)
		fn(line)
	}
}
