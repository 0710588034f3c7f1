package main

import (
	"go.pilab.hu/portal/cmd/portalctl/cmd"
)

func main() {
	cmd.Execute()
}
