// Package auth provides the request interception pipeline for einlass.
//
// Every inbound request is authenticated before application logic runs.
// Credential validation uses a chain-of-responsibility pattern with
// three-outcome voting: each validator returns Yes (principal established),
// No (credentials invalid), or Abstain (can't handle). The chain result is
// folded into a closed set of outcomes (authenticated, anonymous, token
// request, rejected) that the interceptor branches on.
//
// The interceptor is implemented as HTTP middleware. It carries the
// authenticated principal and the redirect-suppression marker through the
// request context, short-circuits rejected and token-exchange requests
// before the next handler runs, and post-processes unauthorized responses
// with a WWW-Authenticate challenge.
package auth
