package main

import "alpha-radar/internal/cli"

func main() {
	cli.Execute()
}
