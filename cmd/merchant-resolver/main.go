package main

import (
	"github.com/custodia-labs/merchant-resolver/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
