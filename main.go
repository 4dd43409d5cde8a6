package main

import "github.com/maximbilan/hivecouncil/cmd"

func main() {
	cmd.Execute()
}
