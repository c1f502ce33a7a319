package main

import "github.com/agentic-research/pathtree/cmd"

func main() {
	cmd.Execute()
}
