package main

import "container-monitor/cmd"

func main() {
	cmd.Execute()
}
