// Package gateway serves debates to chat clients over websockets.
//
// Each socket is bound to one channel and one user:
//
//	GET /channels/{channel}/ws?user=alice&name=Alice[&token=...]
//
// Clients send JSON requests ({"action": "join"}) and receive JSON frames:
// rendered session notices for the whole channel, chat echoes, and replies
// or errors addressed to the sender only. Presenting the configured admin
// token, as a query parameter or bearer header, grants the privileged role
// needed to create and stop debates.
//
// Read-only monitoring endpoints are /healthz, /channels and
// /channels/{channel}.
package gateway
