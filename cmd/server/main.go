package main

import (
	"context"
	"fmt"
	"log"

	"github.com/dmitrijs2005/gophchat/internal/server"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	if cfg.CreateCodeEmail != "" {
		code, err := app.ProvisionAccessCode(ctx, cfg.CreateCodeEmail, cfg.CreateCodeName, cfg.CreateCodeLabel)
		if err != nil {
			log.Fatalf("create access code: %v", err)
		}
		fmt.Println(code)
		return
	}

	app.Run(ctx)

}
