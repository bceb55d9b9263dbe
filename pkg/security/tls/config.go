package tls

import (
	"crypto/tls"
	"fmt"

	"tianji-hq/oracle/pkg/config"
)

// ServerConfig builds the listener TLS configuration. Certificates are served
// from reloader so a renewed pair is picked up without a restart.
func ServerConfig(cfg config.TLSConfig, reloader *CertificateReloader) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if reloader == nil {
		return nil, fmt.Errorf("tls: certificate reloader is required")
	}

	suites, err := parseCipherSuites(cfg.CipherSuites)
	if err != nil {
		return nil, err
	}

	// #nosec G402 - MinVersion is restricted to 1.2 or 1.3.
	return &tls.Config{
		MinVersion:     parseVersion(cfg.MinVersion),
		CipherSuites:   suites,
		GetCertificate: reloader.GetCertificateFunc(),
		// WebSocket upgrades need HTTP/1.1; h2 would strip the hijacker.
		NextProtos: []string{"http/1.1"},
	}, nil
}

func parseVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func parseCipherSuites(names []string) ([]uint16, error) {
	if len(names) == 0 {
		return nil, nil
	}

	known := make(map[string]uint16)
	for _, s := range tls.CipherSuites() {
		known[s.Name] = s.ID
	}

	ids := make([]uint16, 0, len(names))
	for _, name := range names {
		id, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("tls: unsupported cipher suite %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
