package main

import "github.com/rtenhove/zeebe/server/commands"

func main() {
	commands.Execute()
}
