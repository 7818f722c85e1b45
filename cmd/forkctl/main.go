package main

import "github.com/chainsafe/forkctl/cmd/forkctl/commands"

func main() {
	commands.Execute()
}
