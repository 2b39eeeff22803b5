package main

import (
	"os"

	"reunite.city/matcher/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
