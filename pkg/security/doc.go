/*
Package security provides transport security and authentication for
Janus.

# TLS

The tls subpackage owns the certificate material for the secure
listener. A Reloader validates new PEM files off the handshake path and
swaps them in without dropping established connections:

	reloader := tls.NewReloader(certFile, keyFile, logger, collector)
	if err := reloader.Load(); err != nil {
		log.Fatal(err)
	}
	server.TLSConfig = reloader.ServerConfig()

# Authentication

The auth subpackage implements stateless signed-token authentication.
Clients present Basic credentials once and receive a signed bearer
token; subsequent requests carry only the token, which the engine
verifies without any session state:

	engine, err := auth.NewEngine(auth.Config{Secret: secret, Logger: logger})
	result := engine.Authenticate(r.Header.Get("Authorization"), lookup)
	if result.Authenticated {
		w.Header().Set("Authorization", "Bearer "+result.Token)
	}
*/
package security
