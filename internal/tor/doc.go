// Package tor routes page fetches through a Tor SOCKS5 proxy.
//
// Analysts inspecting a suspected phishing page usually do not want the
// page operator to learn their address. A Client wraps a SOCKS5 dialer from
// golang.org/x/net/proxy and builds HTTP clients that send every request
// through Tor. EmbeddedTor starts a private Tor daemon with tornago for
// hosts without a system Tor. IsValidV3Address checks onion addresses before
// a fetch is attempted.
package tor
