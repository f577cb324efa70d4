// Command ccm manages configuration profiles for the .claude directory.
package main

import "github.com/mesh-intelligence/ccmanager/internal/cli"

func main() {
	cli.Execute()
}
