// Warden is the conversation server that gates model tool calls behind
// human approval.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kiosk404/warden/internal/warden"
)

func main() {
	warden.NewApp("warden").Run()
}
