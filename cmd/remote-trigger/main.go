package main

import "github.com/davarch/remote-trigger/cmd/remote-trigger/cli"

func main() {
	cli.Execute()
}
