package tor

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		wantErr bool
	}{
		{"127.0.0.1:9050", false},
		{"localhost:9150", false},
		{"[::1]:9050", false},
		{"127.0.0.1", true},
		{":9050", true},
		{"127.0.0.1:0", true},
		{"127.0.0.1:65536", true},
		{"127.0.0.1:port", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()

			c, err := NewClient(tt.address, time.Second)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidProxyAddress) {
					t.Errorf("NewClient(%q) error = %v, want ErrInvalidProxyAddress", tt.address, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient(%q) error = %v", tt.address, err)
			}
			if c.ProxyAddress() != tt.address {
				t.Errorf("ProxyAddress() = %q", c.ProxyAddress())
			}
		})
	}
}

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	c, err := NewClient("127.0.0.1:9050", 7*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	hc := c.NewHTTPClient()
	if hc.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", hc.Timeout)
	}
	tr, ok := hc.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Transport = %T, want *http.Transport", hc.Transport)
	}
	if !tr.DisableCompression {
		t.Error("compression should be disabled")
	}
	if tr.TLSClientConfig != nil && tr.TLSClientConfig.InsecureSkipVerify {
		t.Error("certificate verification must stay enabled")
	}

	via := make([]*http.Request, maxRedirects)
	if err := hc.CheckRedirect(nil, via); !errors.Is(err, http.ErrUseLastResponse) {
		t.Errorf("CheckRedirect at limit = %v, want ErrUseLastResponse", err)
	}
	if err := hc.CheckRedirect(nil, via[:1]); err != nil {
		t.Errorf("CheckRedirect below limit = %v", err)
	}
}

func TestProxyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status  ProxyStatus
		str     string
		wantErr error
	}{
		{ProxyStatusOK, "OK", nil},
		{ProxyStatusWrongType, "wrong type (not Tor)", ErrProxyNotTor},
		{ProxyStatusCannotConnect, "cannot connect", ErrProxyCannotConnect},
		{ProxyStatusTimeout, "timeout", ErrProxyTimeout},
	}
	for _, tt := range tests {
		if tt.status.String() != tt.str {
			t.Errorf("String() = %q, want %q", tt.status.String(), tt.str)
		}
		if !errors.Is(tt.status.Error(), tt.wantErr) {
			t.Errorf("%v.Error() = %v, want %v", tt.status, tt.status.Error(), tt.wantErr)
		}
	}
	if ProxyStatus(99).String() != "unknown" || ProxyStatus(99).Error() == nil {
		t.Error("unknown status should stringify as unknown and carry an error")
	}
}

// mockProxy accepts one connection and lets serve drive it.
func mockProxy(t *testing.T, serve func(net.Conn)) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // test code
	if err != nil {
		t.Fatalf("failed to start mock proxy: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}()
	return listener.Addr().String()
}

func TestCheckConnection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		serve func(net.Conn)
		want  ProxyStatus
	}{
		{
			name: "SOCKS5 proxy",
			serve: func(conn net.Conn) {
				greeting := make([]byte, 3)
				_, _ = io.ReadFull(conn, greeting)
				_, _ = conn.Write([]byte{0x05, 0x00})
				req := make([]byte, 7+len(socks5CheckHost))
				_, _ = io.ReadFull(conn, req)
				// Host unreachable is still a SOCKS5 answer.
				_, _ = conn.Write([]byte{0x05, 0x04, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
			},
			want: ProxyStatusOK,
		},
		{
			name: "HTTP server",
			serve: func(conn net.Conn) {
				greeting := make([]byte, 3)
				_, _ = io.ReadFull(conn, greeting)
				_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
			},
			want: ProxyStatusWrongType,
		},
		{
			name: "SOCKS5 requiring authentication",
			serve: func(conn net.Conn) {
				greeting := make([]byte, 3)
				_, _ = io.ReadFull(conn, greeting)
				_, _ = conn.Write([]byte{0x05, 0xFF})
			},
			want: ProxyStatusWrongType,
		},
		{
			name: "wrong version in CONNECT reply",
			serve: func(conn net.Conn) {
				greeting := make([]byte, 3)
				_, _ = io.ReadFull(conn, greeting)
				_, _ = conn.Write([]byte{0x05, 0x00})
				req := make([]byte, 7+len(socks5CheckHost))
				_, _ = io.ReadFull(conn, req)
				_, _ = conn.Write([]byte{0x04, 0x00, 0x00, 0x01})
			},
			want: ProxyStatusWrongType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := NewClient(mockProxy(t, tt.serve), time.Second)
			if err != nil {
				t.Fatal(err)
			}
			if got := c.CheckConnection(context.Background()); got != tt.want {
				t.Errorf("CheckConnection() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("nothing listening", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // test code
		if err != nil {
			t.Fatal(err)
		}
		addr := listener.Addr().String()
		_ = listener.Close()

		c, err := NewClient(addr, time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if got := c.CheckConnection(context.Background()); got != ProxyStatusCannotConnect {
			t.Errorf("CheckConnection() = %v, want ProxyStatusCannotConnect", got)
		}
	})
}

func TestDialContextCanceled(t *testing.T) {
	t.Parallel()

	c, err := NewClient("127.0.0.1:9050", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.DialContext(ctx, "tcp", "example.com:80"); err == nil {
		t.Error("DialContext() with canceled context succeeded")
	}
}
