package cmd

import (
	"fmt"
	"io"
)

const banner = `
                  _        _   _          _
  _ __   ___   ___| | _____| |_| | ___  __| | __ _  ___ _ __
 | '_ \ / _ \ / __| |/ / _ \ __| |/ _ \/ _` + "`" + ` |/ _` + "`" + ` |/ _ \ '__|
 | |_) | (_) | (__|   <  __/ |_| |  __/ (_| | (_| |  __/ |
 | .__/ \___/ \___|_|\_\___|\__|_|\___|\__,_|\__, |\___|_|
 |_|                                         |___/
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Personal Finance Sandbox - Version %s\x1b[0m\n\n", Version)
}
