package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/keylisten/key"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the special key names the listener can report",
		Long: `Prints every special key name the default key table can produce.
Printable characters name themselves and are not listed. Any of these
names can be used with --until.`,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range key.DefaultTable().Names() {
				fmt.Println(name)
			}
		},
	}
}
