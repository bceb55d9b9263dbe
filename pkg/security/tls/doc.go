// Package tls terminates TLS on the gateway listener so that clients can
// reach the stream over wss:// and the HTTP endpoints over https://.
//
// The certificate pair is held by a CertificateReloader that watches the
// files with fsnotify and swaps in renewed certificates without dropping
// existing sessions:
//
//	reloader, err := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, logger)
//	if err != nil {
//		return err
//	}
//	go reloader.Run(ctx)
//
//	tlsConfig, err := tls.ServerConfig(cfg, reloader)
//
// ALPN is pinned to http/1.1 because the stream handshake hijacks the
// connection.
package tls
