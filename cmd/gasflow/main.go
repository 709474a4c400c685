package main

import "github.com/fpawel/gasflow/internal/cli"

// set by -ldflags "-X main.GitCommit=..."
var (
	GitCommit string
	BuildDate string
)

func main() {
	cli.Execute(cli.BuildInfo{
		Commit: GitCommit,
		Date:   BuildDate,
	})
}
