package main

import "github.com/felixgeelhaar/atelier/cmd/atelier/cli"

func main() {
	cli.Execute()
}
