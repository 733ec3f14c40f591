package main

import "github.com/notifoxhq/notifox/internal/cli"

func main() {
	cli.Execute()
}
