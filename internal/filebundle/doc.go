// Package filebundle reads and writes the multi-file text format exchanged
// with the code-generation models:
//
//	### filename: index.html ###
//	<content>
//	### end ###
//
// Parse tolerates a Markdown fence wrapping a block's content; Format never
// emits one.
package filebundle
