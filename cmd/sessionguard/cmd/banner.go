package cmd

import (
	"fmt"
)

const banner = `
   _____                _              ____                     _
  / ____|              (_)            / ___|                   | |
 | (___   ___  ___ ___  _  ___  _ __ | |  _ _   _  __ _ _ __ __| |
  \___ \ / _ \/ __/ __|| |/ _ \| '_ \| | | | | | |/ _` + "`" + ` | '__/ _` + "`" + ` |
  ____) |  __/\__ \__ \| | (_) | | | | |_| | |_| | (_| | | | (_| |
 |_____/ \___||___/___/|_|\___/|_| |_|\____|\__,_|\__,_|_|  \__,_|

`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Session Lifecycle Control Service - Version %s\x1b[0m\n\n", Version)
}
