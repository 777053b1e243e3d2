package main

import "github.com/pfrederiksen/exam-events/internal/cli"

func main() {
	cli.Execute()
}
