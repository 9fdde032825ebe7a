// Package domain contains the in-memory deck model: tags, spell cards and
// the deck that owns them, with change notification on every mutation.
package domain
