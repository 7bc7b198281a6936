package main

import "github.com/ultratune/ultratune/internal/cli"

func main() {
	cli.Execute()
}
