package main

import "classattend/internal/cli"

func main() {
	cli.Execute()
}
