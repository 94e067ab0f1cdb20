// Package overlay streams composed wall frames to browser overlay clients
// (such as an OBS browser source) over WebSocket, and feeds client viewport
// sizes back into the wall's container.
package overlay

import "errors"

// Sentinel errors for the overlay package.
var (
	ErrInvalidToken = errors.New("overlay: invalid access token")
	ErrMaxClients   = errors.New("overlay: maximum number of clients reached")
)
