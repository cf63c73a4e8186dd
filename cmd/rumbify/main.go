package main

import "github.com/rumbify/rumbify/internal/cli"

func main() {
	cli.Execute()
}
