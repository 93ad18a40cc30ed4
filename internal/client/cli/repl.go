package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/donorlink/internal/logging"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	ListDonors(ctx context.Context) error
	ListRequests(ctx context.Context) error
	ShowDonor(ctx context.Context, code string) error
	MyRequests(ctx context.Context, code string) error
	AddDonor(ctx context.Context) error
	AddRequest(ctx context.Context) error
	SetStatus(ctx context.Context, id, status string) error
	DeleteRequest(ctx context.Context, id string) error
	DeleteDonor(ctx context.Context, code string) error
	Stats(ctx context.Context) error
	Metrics(ctx context.Context) error
	ResetCache(ctx context.Context) error
}

const helpText = `Available commands:
  donors                     list registered donors
  requests                   list blood requests
  donor [code]               show the donor profile filed under an access code
  myrequests [code]          list requests filed under an access code
  adddonor                   register as a donor
  addrequest                 file a blood request
  status [id] [status]       change a request status (active, fulfilled, notNeeded, deceased)
  deleterequest [id]         delete a request
  deletedonor [code]         delete a donor profile
  stats                      show donor and request counts
  metrics                    show cache counters
  resetcache                 drop saved snapshots and reload both lists
  exit | quit                leave the program`

// runREPL starts a read-eval-print loop for the DonorLink CLI.
//
// It reads a line from reader, parses the first token as the command and
// the rest as arguments, and dispatches to methods on a. Missing arguments
// are prompted for by the handlers. Handler errors are printed and the loop
// continues. The loop exits on EOF or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("donorlink [%s] > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]
		ctx := logging.ContextWith(ctx, "command", cmd)
		arg := func(i int) string {
			if i < len(args) {
				return args[i]
			}
			return ""
		}

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "donors":
			cmdErr = a.ListDonors(ctx)

		case "requests":
			cmdErr = a.ListRequests(ctx)

		case "donor":
			cmdErr = a.ShowDonor(ctx, arg(0))

		case "myrequests":
			cmdErr = a.MyRequests(ctx, arg(0))

		case "adddonor":
			cmdErr = a.AddDonor(ctx)

		case "addrequest":
			cmdErr = a.AddRequest(ctx)

		case "status":
			cmdErr = a.SetStatus(ctx, arg(0), arg(1))

		case "deleterequest":
			cmdErr = a.DeleteRequest(ctx, arg(0))

		case "deletedonor":
			cmdErr = a.DeleteDonor(ctx, arg(0))

		case "stats":
			cmdErr = a.Stats(ctx)

		case "metrics":
			cmdErr = a.Metrics(ctx)

		case "resetcache":
			cmdErr = a.ResetCache(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
