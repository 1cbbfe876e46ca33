// Package daemon owns the long-running atelierd process lifecycle.
//
// It pairs the catalogue HTTP server with an flock-based lock in log_dir so
// only one daemon serves a given data directory, and reports runtime status
// for the process that started it. Request handling lives in webapp and the
// catalogue in store; the daemon only starts, stops, and describes them.
package daemon
