package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"eating-management/backend/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}
