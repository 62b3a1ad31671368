// Package main is the entry point for the document QA service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/docrag/cmd/docrag/app"
)

func main() {
	app.NewApp().Run()
}
