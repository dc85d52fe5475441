package main

import "github.com/vibast-solutions/ms-go-momo/cmd"

func main() {
	cmd.Execute()
}
