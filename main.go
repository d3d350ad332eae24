// Command wtg records a shell session and answers questions about the output
// of the last command run in it.
package main

import "github.com/fakeyudi/wtg/cmd"

func main() {
	cmd.Execute()
}
