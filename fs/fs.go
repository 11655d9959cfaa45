// Package appfs embeds the static files shipped within the binaries.
package appfs

import "embed"

//go:embed migrations all:templates
var FS embed.FS
