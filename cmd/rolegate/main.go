package main

import "github.com/agubarev/rolegate/cmd"

func main() {
	cmd.Execute()
}
