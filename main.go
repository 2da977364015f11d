package main

import "github.com/dispatchly/ghostload/cmd"

func main() {
	cmd.Execute()
}
