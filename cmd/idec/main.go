package main

import "github.com/allbin/go-serial-ide/cmd"

func main() {
	cmd.Execute()
}
