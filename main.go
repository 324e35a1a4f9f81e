package main

import "github.com/Alijeyrad/dentlab_backend/cmd"

func main() {
	cmd.Execute()
}
