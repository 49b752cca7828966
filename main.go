package main

import (
	"log"

	"modecalib/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("modecalib: %v", err)
	}
}
