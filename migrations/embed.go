// Package migrations embeds the numbered SQL files applied to every office
// schema by the migrate and office commands.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
