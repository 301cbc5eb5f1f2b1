package main

import "github.com/desktopqa/terminal-bdd/cmd"

func main() {
	cmd.Execute()
}
