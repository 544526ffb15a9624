package mqtt

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// ProxyDialer wraps dial to route the TCP leg through an HTTP CONNECT
// tunnel when HTTPS_PROXY/NO_PROXY (or their lowercase forms) name one for
// addr, mirroring iotcored's proxy_get_info (tls.c), which resolves the
// broker endpoint against the configured proxy and no-proxy list before
// dialing. httpproxy.FromEnvironment is the only piece with ecosystem
// support in this pack (golang.org/x/net/http/httpproxy, pulled in
// transitively); the CONNECT handshake itself has no library in the
// example pack and is hand-rolled here the same way packet.go hand-rolls
// the MQTT wire format.
func ProxyDialer(ctx context.Context, addr string, dial DialFunc) (net.Conn, error) {
	cfg := httpproxy.FromEnvironment()
	proxyURL, err := cfg.ProxyFunc()(&url.URL{Scheme: "https", Host: addr})
	if err != nil {
		return nil, fmt.Errorf("resolve proxy: %w", err)
	}
	if proxyURL == nil {
		return dial(ctx, addr)
	}
	return connectThroughProxy(ctx, proxyURL, addr, dial)
}

// DialFunc dials the plain TCP connection to addr, before any TLS
// handshake is layered on top.
type DialFunc func(ctx context.Context, addr string) (net.Conn, error)

func plainDial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

func connectThroughProxy(ctx context.Context, proxyURL *url.URL, targetAddr string, dial DialFunc) (net.Conn, error) {
	conn, err := dial(ctx, proxyURL.Host)
	if err != nil {
		return nil, fmt.Errorf("dial proxy: %w", err)
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: targetAddr},
		Host:   targetAddr,
		Header: make(http.Header),
	}
	if proxyURL.User != nil {
		req.Header.Set("Proxy-Authorization", basicAuth(proxyURL.User))
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write CONNECT request: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read CONNECT response: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("proxy CONNECT failed: %s", resp.Status)
	}

	conn.SetDeadline(time.Time{})
	return conn, nil
}

func basicAuth(u *url.Userinfo) string {
	password, _ := u.Password()
	raw := u.Username() + ":" + password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}
