package main

import "github.com/internquest/sessionguard/cmd/sessionguard/cmd"

func main() {
	cmd.Execute()
}
