package main

import "calengine/cmd/calengine/cmd"

func main() {
	cmd.Execute()
}
