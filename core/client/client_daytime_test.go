package client

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"example.com/nist-sync/net/daytime"
)

// fakeDaytimeServer accepts one connection, writes resp and closes. When
// resp is nil the connection is held open without writing until the
// listener is closed.
func fakeDaytimeServer(t *testing.T, resp []byte) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		if resp != nil {
			_, _ = conn.Write(resp)
			conn.Close()
			return
		}
		buf := make([]byte, 1)
		_, _ = conn.Read(buf) // blocks until the client gives up
		conn.Close()
	}()
	t.Cleanup(func() { lis.Close() })
	return lis
}

func TestDaytimeClientFetchTime(t *testing.T) {
	want := time.Date(2024, 8, 25, 21, 3, 24, 0, time.UTC)
	lis := fakeDaytimeServer(t, daytime.FormatResponse(want, 0))

	c := &DaytimeClient{Log: slog.New(slog.DiscardHandler), RemoteAddr: lis.Addr().String()}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ts, err := c.FetchTime(ctx)
	if err != nil {
		t.Fatalf("FetchTime: %v", err)
	}
	if !ts.Equal(want) {
		t.Errorf("FetchTime: got %v, want %v", ts, want)
	}
}

func TestDaytimeClientMalformedResponse(t *testing.T) {
	lis := fakeDaytimeServer(t, []byte("no time here\n"))

	c := &DaytimeClient{Log: slog.New(slog.DiscardHandler), RemoteAddr: lis.Addr().String()}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := c.FetchTime(ctx)
	if !errors.Is(err, ErrParse) {
		t.Errorf("FetchTime: got %v, want ErrParse", err)
	}
}

func TestDaytimeClientUnreachable(t *testing.T) {
	lis := fakeDaytimeServer(t, nil)
	addr := lis.Addr().String()
	lis.Close()

	c := &DaytimeClient{Log: slog.New(slog.DiscardHandler), RemoteAddr: addr}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := c.FetchTime(ctx)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("FetchTime: got %v, want ErrNetwork", err)
	}
}

func TestDaytimeClientTimeout(t *testing.T) {
	lis := fakeDaytimeServer(t, nil) // never responds

	c := &DaytimeClient{Log: slog.New(slog.DiscardHandler), RemoteAddr: lis.Addr().String()}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	t0 := time.Now()
	_, err := c.FetchTime(ctx)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("FetchTime: got %v, want ErrNetwork", err)
	}
	if d := time.Since(t0); d > time.Second {
		t.Errorf("FetchTime blocked for %v, deadline not honored", d)
	}
}
