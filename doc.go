// Package identity is the authentication and access core of the platform
// backend: password and social login, the password change/forgot/reset
// lifecycle, and owner-scoped paginated queries over domain resources.
//
// Engines are exposed as command and query handlers routed through a
// Dispatcher; each handler is a stateless unit of work that talks to the
// repositories and returns either a value or a categorized error. The HTTP
// controller is a thin fiber layer that binds payloads, validates them, and
// maps error categories to status codes.
//
// Reset tokens:
//   - A user holds at most one outstanding reset token. Issuing a new one
//     overwrites the previous token, and consumption is a single UPDATE
//     keyed on the token value so concurrent consumers race safely.
package identity
