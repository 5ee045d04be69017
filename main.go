package main

import (
	"github.com/ColonelBlimp/cwkeyer/cmd"
	"github.com/ColonelBlimp/cwkeyer/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
