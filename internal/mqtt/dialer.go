package mqtt

import (
	"context"
	"crypto/tls"
	"net"
)

// Dialer opens the transport connection to the broker. Grounded on
// mqtt0's DefaultDialer: the runtime always talks MQTT 3.1.1 over TLS on
// the AWS IoT Core endpoint, so unlike the reference dialer this one only
// needs the TLS branch, parameterized by mutual-TLS client cert material.
// The TCP leg is routed through an HTTP CONNECT proxy when HTTPS_PROXY/
// NO_PROXY name one for addr, matching iotcored's proxy_get_info.
func Dialer(ctx context.Context, addr string, tlsConfig *tls.Config) (net.Conn, error) {
	conn, err := ProxyDialer(ctx, addr, plainDial)
	if err != nil {
		return nil, err
	}
	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}
