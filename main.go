package main

import "c3dl/cmd"

func main() {
	cmd.Execute()
}
