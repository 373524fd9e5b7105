package main

import "pagectx/internal/cli"

func main() {
	cli.Execute()
}
