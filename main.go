package main

import "github.com/kozaktomas/face-studio/cmd"

func main() {
	cmd.Execute()
}
