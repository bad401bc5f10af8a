// Package transport provides the HTTP plumbing shared by the gateway:
// middleware composition, request IDs, access logging, and panic recovery.
package transport
