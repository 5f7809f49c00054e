package main

import "github.com/idrisfallout/artemis-installer/cmd/artemis-packager/cmd"

func main() {
	cmd.Execute()
}
