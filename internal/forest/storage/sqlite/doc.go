// Package sqlite persists segmentation runs in a SQLite database.
//
// A run row records the input, the parameters, the build version and the
// headline counts. Tree tops (with their crown summaries) and Stage-2
// growth rounds live in child tables keyed by run id. The schema is owned
// by the embedded migrations and applied by Open.
package sqlite
