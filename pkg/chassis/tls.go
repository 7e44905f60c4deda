package chassis

import (
	"crypto/tls"

	"github.com/hazyhaar/wardstats/pkg/mcpquic"
)

// nextProtos are the ALPN ids served on the QUIC socket.
var nextProtos = []string{"h3", mcpquic.ALPNProtocolMCP}

// DevelopmentTLSConfig generates a self-signed TLS config offering HTTP/3
// and MCP over QUIC.
func DevelopmentTLSConfig() (*tls.Config, error) {
	cert, err := mcpquic.SelfSignedCertificate("wardstats dev")
	if err != nil {
		return nil, err
	}
	return newTLSConfig(cert), nil
}

// ProductionTLSConfig loads cert/key from files.
func ProductionTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return newTLSConfig(cert), nil
}

func newTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
		NextProtos:   nextProtos,
	}
}
