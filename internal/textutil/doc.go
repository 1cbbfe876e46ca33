// Package textutil holds small text helpers shared by the CLI, the stylist,
// and the forge: token fingerprints with cosine similarity, filename
// sanitization, title casing, and single-line snippets for tables and logs.
package textutil
