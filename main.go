package main

import "contactlink/internal/cli"

func main() {
	cli.Execute()
}
