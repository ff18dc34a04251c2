package main

import "github.com/gocrud/bitlog/internal/cmd"

func main() {
	cmd.Execute()
}
