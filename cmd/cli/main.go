package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/donorlink/internal/buildinfo"
	"github.com/dmitrijs2005/donorlink/internal/client/cli"
	"github.com/dmitrijs2005/donorlink/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
