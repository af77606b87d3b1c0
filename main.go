// The main package for the hotelharvest executable.
package main

import "github.com/hqnguyen/hotelharvest/cmd"

func main() {
	cmd.Execute()
}
