package main

import (
	"log/slog"
	"os"

	"github.com/soocke/stream-console/app"
	"github.com/soocke/stream-console/cmd"
	"github.com/soocke/stream-console/config"
	"github.com/soocke/stream-console/domain/capture"
)

func main() {
	if err := cmd.Execute(preview); err != nil {
		os.Exit(1)
	}
}

// preview opens the Tk console; it blocks until the window closes.
func preview(cfg *config.Config, cfgPath string, logger *slog.Logger, open capture.Opener) error {
	app.NewConsole("Stream Console", 980, 860, cfg, cfgPath, logger, open).Run()
	return nil
}
