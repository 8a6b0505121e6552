// Package identity implements taskboard's user registry.
//
// It defines the User model with its two fixed role tiers, the persistence
// boundary for user management, and the rules that keep the board
// administrable: duplicate emails are conflicts, and the last remaining ADMIN
// can neither be deleted nor demoted.
package identity
