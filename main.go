package main

import "github.com/lepinkainen/catalogfill/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
