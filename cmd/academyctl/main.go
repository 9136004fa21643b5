// Command academyctl is the command line back office of the Combat Warrior
// Academy.
package main

import (
	"os"

	"github.com/combatwarrior/academy/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
