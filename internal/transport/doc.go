// Package transport builds the HTTP client used to fetch FOFA pages.
//
// The client carries the operator's session: a cookie jar, the raw cookie
// string from the configuration, and any custom headers are attached to
// every request, including redirects. An optional SOCKS5 proxy can be
// configured for operators who route traffic through Tor or a jump host.
package transport
