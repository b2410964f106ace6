//nolint:all
package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/andrei-cloud/anet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-cloud/go_cmdhost/internal/dispatch"
	"github.com/andrei-cloud/go_cmdhost/internal/host"
	"github.com/andrei-cloud/go_cmdhost/internal/registry"
	server "github.com/andrei-cloud/go_cmdhost/internal/server"
	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

const testAddr = "127.0.0.1:15150"

var testKey = server.Key("bot", "s3cret")

type catalog []dispatch.Module

func (c catalog) Modules() []dispatch.Module { return c }

// startTestServer starts a server in front of a host with one echo plugin.
func startTestServer(t *testing.T) *server.Server {
	t.Helper()

	set := registry.NewSet()
	set.Category(plugin.CategorySpec{Name: "echo"}).
		Command(plugin.CommandSpec{
			Name:   "say",
			Params: []plugin.ParamSpec{{Name: "text", Type: plugin.Rest}},
		}, func(_ context.Context, call *plugin.Call) error {
			call.Reply(call.Args.String(0))
			call.Reply("done")
			return nil
		})

	router := host.NewRouter(nil)
	h := host.New(dispatch.New(catalog{{ID: "echo", Categories: set}}, router))

	srv, err := server.NewServer(testAddr, testKey, h, router)
	if err != nil {
		t.Fatalf("failed to initialize server: %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			t.Fatalf("server start error: %v", err)
		}
	case <-time.After(1 * time.Second):
		// Allow some time for the server to start
	}

	time.Sleep(100 * time.Millisecond)

	return srv
}

// newClient returns a send function backed by an anet broker.
func newClient(t *testing.T) func(req []byte) ([]byte, error) {
	t.Helper()

	factory := func(addr string) (anet.PoolItem, error) {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err != nil {
			return nil, err
		}

		if err := conn.SetDeadline(time.Now().Add(2 * time.Second)); err != nil {
			conn.Close()

			return nil, err
		}

		return conn, nil
	}

	pool := anet.NewPool(1, factory, testAddr, nil)
	t.Cleanup(func() { pool.Close() })

	broker := anet.NewBroker([]anet.Pool{pool}, 1, nil, nil)
	go broker.Start()
	t.Cleanup(func() { broker.Close() })

	return func(req []byte) ([]byte, error) {
		return broker.Send(&req)
	}
}

// TestRemoteCommand verifies a remote sender receives its replies.
func TestRemoteCommand(t *testing.T) {
	srv := startTestServer(t)
	defer srv.Stop()

	send := newClient(t)

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "command", text: "/echo say hello there", want: "hello there\ndone"},
		{name: "prefix", text: "/e s x", want: "x\ndone"},
		{name: "unknown", text: "/nope", want: "Unknown category: nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := server.EncodeFrame(testKey, 77, time.Now(), tt.text)
			resp, err := send(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(resp))
		})
	}
}
