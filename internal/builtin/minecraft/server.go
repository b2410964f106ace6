package minecraft

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andrei-cloud/go_cmdhost/internal/dispatch"
	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

// StartedMarker is the server log line announcing a completed start.
const StartedMarker = "Started up server"

// StopTimeout bounds how long stop waits before killing the process.
var StopTimeout = 15 * time.Second

var errNotRunning = errors.New("no Minecraft server is currently running")

// Server is the mc category instance. It owns the server process.
type Server struct {
	dir   string
	exe   string
	env   *plugin.Env
	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  chan struct{}
	mu    sync.Mutex
}

func (s *Server) configure(dir, exe string, env *plugin.Env) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dir, s.exe, s.env = dir, exe, env
}

func (s *Server) running() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Server) start(_ context.Context, call *plugin.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running() {
		call.Reply("The Minecraft server is already running.")
		return nil
	}

	call.Reply("Server starting..")

	// the process outlives the command, so it is not bound to the call context.
	cmd := exec.Command(filepath.Join(s.dir, s.exe))
	cmd.Dir = s.dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open server input: %w", err)
	}
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return fmt.Errorf("failed to start server: %w", err)
	}

	done := make(chan struct{})
	s.cmd, s.stdin, s.done = cmd, stdin, done

	log.Info().
		Str("event", "minecraft_started").
		Str("dir", s.dir).
		Int("pid", cmd.Process.Pid).
		Msg("started minecraft server")

	go s.watch(pr, s.env)
	go func() {
		err := cmd.Wait()
		_ = pw.Close()
		close(done)
		log.Info().Str("event", "minecraft_exited").Err(err).Msg("minecraft server exited")
	}()

	return nil
}

// watch follows the server output and announces the first start marker to
// the console.
func (s *Server) watch(r io.Reader, env *plugin.Env) {
	announced := false
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		log.Debug().Str("source", "minecraft").Msg(line)

		if !announced && strings.Contains(strings.ToLower(line), strings.ToLower(StartedMarker)) {
			announced = true
			env.Reply(dispatch.ConsoleSender, "Server started!")
		}
	}
}

func (s *Server) send(line string) error {
	if !s.running() {
		return errNotRunning
	}
	_, err := io.WriteString(s.stdin, line+"\n")
	return err
}

func (s *Server) execute(_ context.Context, call *plugin.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	command := call.Args.String(0)
	if command == "" {
		call.Reply("Nothing to execute.")
		return nil
	}
	if err := s.send(command); err != nil {
		if errors.Is(err, errNotRunning) {
			call.Reply("No Minecraft server is currently running.")
			return nil
		}
		return fmt.Errorf("failed to write to server: %w", err)
	}
	return nil
}

func (s *Server) stop(ctx context.Context, call *plugin.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running() {
		call.Reply("No Minecraft server is currently running.")
		return nil
	}

	call.Reply("Server stopping..")
	if err := s.halt(ctx); err != nil {
		return err
	}
	call.Reply("Server stopped.")
	return nil
}

// halt asks the server to stop and kills it after StopTimeout.
func (s *Server) halt(ctx context.Context) error {
	if err := s.send("stop"); err != nil && !errors.Is(err, errNotRunning) {
		log.Warn().Err(err).Msg("failed to send stop to minecraft server")
	}

	timer := time.NewTimer(StopTimeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
	case <-timer.C:
	}

	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill server: %w", err)
	}
	<-s.done
	return nil
}

func (s *Server) status(_ context.Context, call *plugin.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running() {
		call.Reply("No Minecraft server is currently running.")
		return nil
	}
	call.Reply(fmt.Sprintf("Minecraft server is running (pid %d).", s.cmd.Process.Pid))
	return nil
}

// Dispose stops a running server at host shutdown.
func (s *Server) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running() {
		return nil
	}
	return s.halt(context.Background())
}
