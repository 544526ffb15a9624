package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/vaneuver/corert"
)

// TLSOptions names the mutual-TLS material the runtime provisions onto a
// device: a device certificate/key pair plus the root CA that signs the
// broker's server certificate. Grounded on steveyegge-beads' SetTLSConfig,
// extended with a CA pool since iotcored validates the broker with AWS
// IoT Core's root CA rather than the system trust store.
type TLSOptions struct {
	RootCAPath string
	CertPath   string
	KeyPath    string
	ServerName string
}

// BuildTLSConfig loads the client certificate and root CA named by opts
// and returns a tls.Config requiring TLS 1.2, suitable for dialing an
// MQTT broker over mutual TLS.
func BuildTLSConfig(opts TLSOptions) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(opts.CertPath, opts.KeyPath)
	if err != nil {
		return nil, corert.NewErr("mqtt_build_tls_config", corert.KindConfig, fmt.Sprintf("load client cert: %v", err))
	}

	caPEM, err := os.ReadFile(opts.RootCAPath)
	if err != nil {
		return nil, corert.NewErr("mqtt_build_tls_config", corert.KindConfig, fmt.Sprintf("read root CA: %v", err))
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, corert.NewErr("mqtt_build_tls_config", corert.KindConfig, "root CA file contains no usable certificates")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		ServerName:   opts.ServerName,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
