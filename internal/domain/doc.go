// Package domain contains the core business concepts for the invitation generator:
// validation failures, generation failures and the user-facing messages they map to.
// Keep this package free of transport (HTTP) and infrastructure (Redis/Chrome/PDF) concerns.
package domain
