package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CertificateReloader serves a certificate pair from disk and swaps it in
// when either file changes. A failed reload keeps the previous pair.
type CertificateReloader struct {
	certFile string
	keyFile  string
	logger   *slog.Logger

	mu   sync.RWMutex
	cert *tls.Certificate
}

// NewCertificateReloader loads the initial pair. It fails if the pair cannot
// be loaded or is not currently valid.
func NewCertificateReloader(certFile, keyFile string, logger *slog.Logger) (*CertificateReloader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &CertificateReloader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   logger.With("component", "tls"),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload reads the pair from disk.
func (r *CertificateReloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}
	if err := ValidateCertificate(&cert); err != nil {
		return err
	}

	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()

	r.logCertificate(&cert)
	return nil
}

// GetCertificate returns the current pair.
func (r *CertificateReloader) GetCertificate() *tls.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert
}

// GetCertificateFunc adapts the reloader to tls.Config.GetCertificate.
func (r *CertificateReloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		return r.GetCertificate(), nil
	}
}

// Run watches the directories holding the pair until ctx is cancelled.
// Directories are watched rather than files so that atomic replacement
// (rename over the old file, as secret mounts do) is seen.
func (r *CertificateReloader) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	targets := make(map[string]bool, 2)
	for _, f := range []string{r.certFile, r.keyFile} {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("failed to resolve %q: %w", f, err)
		}
		targets[abs] = true
		if err := fw.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("failed to watch %q: %w", filepath.Dir(abs), err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := r.Reload(); err != nil {
				// The key may not have been written yet; the next event retries.
				r.logger.Warn("certificate reload failed", "file", event.Name, "error", err)
				continue
			}
			r.logger.Info("certificate reloaded", "file", event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			r.logger.Error("certificate watcher error", "error", err)
		}
	}
}

func (r *CertificateReloader) logCertificate(cert *tls.Certificate) {
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return
	}
	left, soon := ExpiresWithin(leaf, time.Now())
	attrs := []any{
		"subject", leaf.Subject.CommonName,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
		"expires_in_days", int(left.Hours() / 24),
	}
	if soon {
		r.logger.Warn("certificate expiring soon", attrs...)
		return
	}
	r.logger.Info("certificate loaded", attrs...)
}
