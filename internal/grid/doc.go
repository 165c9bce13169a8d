// Package grid implements the virtualized thumbnail grid as a headless
// state machine.
//
// The View owns scroll state, layout geometry, and a bounded pool of
// presentation slots covering only the rows near the viewport plus a
// pre-warm margin. Collections of any size therefore cost a fixed
// number of realized thumbnails. The presentation layer plugs in
// through two narrow interfaces: a Scheduler that runs work on the
// interactive loop and a Surface that repaints and reports measured
// row heights.
package grid
