// Package http implements the client side of a single HTTP/1.1 GET exchange
// over a raw byte stream, such as the Docker daemon's Unix domain socket.
//
// The response body is framed by Content-Length or chunked Transfer-Encoding.
// Connections are never reused: every request carries "Connection: close".
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
