package main

import (
	"log"
	"os"

	"ircheck/internal/pkg/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
