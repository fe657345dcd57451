package main

import (
	"os"

	"tanuki/internal/tanuki"
)

func main() {
	os.Exit(tanuki.Run(os.Args[1:]))
}
