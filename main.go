package main

import "github.com/workforce/tracker/internal/cmd"

func main() {
	cmd.Execute()
}
