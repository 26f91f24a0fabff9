package main

import "github.com/pwnzen-mobile/ios-app-to-ir/cmd/ios-dec/cmd"

func main() {
	cmd.Execute()
}
