// Package defaultskills provides embedded copies of the shipped skill
// files for use by the init subcommand. This package exists solely to
// satisfy go:embed's requirement that embedded files reside in or below
// the embedding package directory.
//
// The runtime skill loader lives in internal/skills.
package defaultskills

import "embed"

// FS contains the shipped skill markdown files.
//
//go:embed *.md
var FS embed.FS
