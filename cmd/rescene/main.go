package main

import "github.com/rescene-go/rescene/cmd/rescene/cmd"

func main() {
	cmd.Execute()
}
