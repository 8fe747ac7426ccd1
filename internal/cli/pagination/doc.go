// Package pagination implements the --limit, --offset, --page, --page-size
// and --sort flags of listing commands.
package pagination
