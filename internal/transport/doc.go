// Package transport provides the narrow HTTP capability used by the remote
// service clients: send one request, receive the status and body, and
// classify failures as transport errors or remote rejections.
package transport
