// Package main hosts the atelier CLI.
//
// Commands work directly against the catalogue database and upload
// directory named in the configuration file, so the daemon does not need to
// be running. `atelier serve` runs the same HTTP API in the foreground that
// atelierd runs in the background, and the forge commands drive the
// generate/review/aggregate pipeline from the terminal.
package main
