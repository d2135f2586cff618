package main

import (
	"os"

	"github.com/Swind/go-simpleq/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
