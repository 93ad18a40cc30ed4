// Package cli provides the interactive DonorLink command-line client.
//
// It wires configuration, the remote store, the change stream and the local
// snapshot database, then runs a REPL over the synchronized donor and
// request lists. Lists stay current while the REPL is open and mutations
// show up at once, before the remote store confirms them.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
