package main

const appName = "feedwatch"

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	Execute()
}
