package main

import (
	"context"
	"os"

	"github.com/yungbote/earnedvalue-backend/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		code := 1
		if ce, ok := err.(*cli.CLIError); ok && ce.ExitCode > 0 {
			code = ce.ExitCode
		}
		os.Exit(code)
	}
}
