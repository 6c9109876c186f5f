// Command nf is the operational shell around the notefold local storage
// core: inspect, count, list and create entities in an account's database
// from the terminal. UIs embed the library and talk to the async worker
// instead.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
