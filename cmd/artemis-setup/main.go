package main

import "github.com/idrisfallout/artemis-installer/cmd/artemis-setup/cmd"

func main() {
	cmd.Execute()
}
