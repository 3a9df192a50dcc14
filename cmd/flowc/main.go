package main

import "martianoff/flowc/cmd/flowc/commands"

func main() {
	commands.Execute()
}
