// Package store persists the wardrobe catalogue and forge run history in
// SQLite.
//
// The catalogue holds uploaded clothing items, the style preferences users
// submit, and the outfit recommendations generated from them. Forge runs and
// their per-iteration gap analyses are recorded alongside so the CLI and API
// can show what each run did.
//
// Schema changes ship as numbered files under migrations/ and are applied in
// order on Open. Writes retry briefly when SQLite reports the database busy.
// Single-row getters return (nil, nil) when the row does not exist; updates
// and deletes of missing rows return ErrNotFound.
package store
