// Package ui is the terminal presentation layer. A bubbletea model
// renders the thumbnail grid as truecolor half-block mosaics, with
// folder and search inputs, a prompt pane, and a status line. All
// state mutation flows through the controller on the run loop; the
// model only renders snapshots built there.
package ui
