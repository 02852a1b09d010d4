package main

import (
	"os"

	"github.com/teamgrid/teamgrid/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
