// Package cli provides the interactive Caliope command-line client.
//
// It wires configuration, local storage, the selected auth backend (local
// SQLite roster or the remote identity gateway), the AI assistant and an
// interactive REPL. Typical flow: resume a remembered session or prompt for
// one, start a background connectivity watcher, and execute user commands.
//
// Key features:
//   - Register / Login / Google sign-in / Demo mode / Logout
//   - Dashboard with daily tip and a personal suggestion
//   - Chat recommendations, bookings, feedback and the visual journal
//   - Profile editing, goals, achievements and the premium upgrade
//   - Roster and statistics views
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
