package main

import "github.com/eidoscope/eidoscope/cmd"

func main() {
	cmd.Execute()
}
