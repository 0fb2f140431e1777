package main

import "github.com/ObservedObserver/fast-pivot/cmd"

func main() {
	cmd.Execute()
}
