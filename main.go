package main

import "github.com/joshdurbin/runlog/internal/cmd"

func main() {
	cmd.Execute()
}
