package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/spf13/pflag"

	"scribe/internal/app"
	"scribe/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.SocketPath, "Control socket path")
	output := cli.StringP("output", "o", "", "Have the daemon write the transcript to this file")
	timeout := cli.DurationP("timeout", "t", 5*time.Minute, "How long to wait for the daemon")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scribe-ctl [flags] ping\n       scribe-ctl [flags] <audio>\n\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	if cli.NArg() != 1 {
		cli.Usage()
		os.Exit(app.ExitUsage)
	}

	req := ipc.Request{Cmd: ipc.CmdTranscribe, Audio: cli.Arg(0), Output: *output}
	if cli.Arg(0) == ipc.CmdPing {
		req = ipc.Request{Cmd: ipc.CmdPing}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := ipc.Send(ctx, *socket, req)
	if err != nil {
		fmt.Println("scribe-daemon not running:", err)
		os.Exit(app.ExitServiceError)
	}

	if req.Cmd == ipc.CmdPing {
		fmt.Println(resp.Outcome)
		return
	}

	if err := resp.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if _, ok := ipc.OutcomeOf(resp); !ok {
			os.Exit(app.ExitUsage)
		}
		os.Exit(app.ExitCode(err))
	}
	if resp.Text != "" {
		fmt.Println(resp.Text)
	}
}
