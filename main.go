package main

import "github.com/theirongolddev/compte/cmd"

func main() {
	cmd.Execute()
}
