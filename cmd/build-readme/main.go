package main

import (
	"flag"
	"os"

	"github.com/keshon/commandclient/internal/command"
	"github.com/keshon/commandclient/internal/docs"
	"github.com/keshon/commandclient/internal/storage"
	"github.com/keshon/commandclient/pkg/cmd"
	"github.com/rs/zerolog/log"
)

func main() {
	tmpl := flag.String("template", "README.md.tmpl", "README template")
	out := flag.String("out", "README.md", "output file")
	prefix := flag.String("prefix", "!", "prefix shown in front of command names")
	flag.Parse()

	// help and history only need something to satisfy their constructors here
	var noStore storage.Store
	commands := append(cmd.DefaultCatalog.Commands(), command.NewHelp(nil), command.NewHistory(noStore))

	if err := docs.UpdateReadme(*tmpl, *out, commands, *prefix); err != nil {
		log.Error().Err(err).Msg("failed to update README")
		os.Exit(1)
	}
	log.Info().Str("out", *out).Int("commands", len(commands)).Msg("README updated")
}
