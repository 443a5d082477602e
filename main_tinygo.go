//go:build tinygo

package main

import (
	"context"

	"sonar/app"
	"sonar/hal"
	"sonar/internal/config"
)

func main() {
	h, err := hal.New()
	if err != nil {
		app.Fatal(h, err)
		select {}
	}

	a, err := app.New(h, config.Default())
	if err != nil {
		app.Fatal(h, err)
		select {}
	}

	if err := a.Run(context.Background()); err != nil {
		app.Fatal(h, err)
	}
	select {}
}
