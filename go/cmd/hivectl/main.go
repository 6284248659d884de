// Command hivectl is a thin operator CLI for driving a cell's
// TransactionSupervisor RPCs directly, without the retry/ping machinery
// of go/txnclient — useful for manual testing and incident response.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/hivepb"
)

func main() {
	var parser = flags.NewParser(nil, flags.HelpFlag|flags.PassDoubleDash)

	addCmd(parser, "commit", "Commit a transaction", `
Ask a cell to drive a simple or distributed commit of a transaction to
completion and print the resulting commit timestamp.
`, &cmdCommit{})

	addCmd(parser, "abort", "Abort a transaction", `
Ask a cell to abort a transaction.
`, &cmdAbort{})

	addCmd(parser, "ping", "Ping a transaction", `
Probe a transaction's liveness against a cell.
`, &cmdPing{})

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addCmd(to interface {
	AddCommand(string, string, string, interface{}) (*flags.Command, error)
}, name, short, long string, iface interface{}) {
	if _, err := to.AddCommand(name, short, long, iface); err != nil {
		log.WithError(err).Fatal("failed to register hivectl command")
	}
}

// cellTarget is the flag group every command shares: which cell to talk
// to and which transaction to act on.
type cellTarget struct {
	Addr          string `long:"addr" required:"true" description:"cell gRPC address, host:port"`
	TransactionID string `long:"txn" required:"true" description:"transaction id, hex \"hi-lo\""`
	Timeout       time.Duration `long:"timeout" default:"10s" description:"RPC deadline"`
}

func (t cellTarget) dial() (hivepb.TransactionSupervisorClient, error) {
	var conn, err = grpc.NewClient(t.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.Wrap(err, "dialing cell")
	}
	return hivepb.NewTransactionSupervisorClient(conn), nil
}

func (t cellTarget) transactionID() (hiveid.TransactionId, error) {
	var mid, err = hiveid.ParseMutationId(t.TransactionID)
	if err != nil {
		return hiveid.TransactionId{}, errors.Wrap(err, "parsing --txn")
	}
	return hiveid.TransactionId{Hi: mid.Hi, Lo: mid.Lo}, nil
}

func (t cellTarget) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), t.Timeout)
}

type cmdCommit struct {
	cellTarget
	MutationID   string   `long:"mutation-id" description:"idempotency key, hex \"hi-lo\"; random if omitted"`
	Participants []string `long:"participant" description:"other participant cell id, hex \"hi-lo\" (repeatable); omit for a simple commit"`
}

func (cmd cmdCommit) Execute(_ []string) error {
	var client, err = cmd.dial()
	if err != nil {
		return err
	}
	var txID hiveid.TransactionId
	if txID, err = cmd.transactionID(); err != nil {
		return err
	}

	var req = &hivepb.CommitTransactionRequest{
		TransactionIdHi: txID.Hi,
		TransactionIdLo: txID.Lo,
	}
	if cmd.MutationID != "" {
		var mid hiveid.MutationId
		if mid, err = hiveid.ParseMutationId(cmd.MutationID); err != nil {
			return errors.Wrap(err, "parsing --mutation-id")
		}
		req.MutationIdHi, req.MutationIdLo = mid.Hi, mid.Lo
	}
	for _, p := range cmd.Participants {
		var cellID, perr = parseCellID(p)
		if perr != nil {
			return perr
		}
		req.ParticipantCellIds = append(req.ParticipantCellIds, cellID.Hi)
		req.ParticipantCellLos = append(req.ParticipantCellLos, cellID.Lo)
	}

	var ctx, cancel = cmd.context()
	defer cancel()
	var resp *hivepb.CommitTransactionResponse
	if resp, err = client.CommitTransaction(ctx, req); err != nil {
		return errors.Wrap(err, "CommitTransaction")
	}
	fmt.Printf("committed at timestamp %d\n", resp.CommitTimestamp)
	return nil
}

type cmdAbort struct {
	cellTarget
	Force bool `long:"force" description:"set the force flag passed to the cell's transaction-manager abort"`
}

func (cmd cmdAbort) Execute(_ []string) error {
	var client, err = cmd.dial()
	if err != nil {
		return err
	}
	var txID hiveid.TransactionId
	if txID, err = cmd.transactionID(); err != nil {
		return err
	}
	var ctx, cancel = cmd.context()
	defer cancel()
	if _, err = client.AbortTransaction(ctx, &hivepb.AbortTransactionRequest{
		TransactionIdHi: txID.Hi,
		TransactionIdLo: txID.Lo,
		Force:           cmd.Force,
	}); err != nil {
		return errors.Wrap(err, "AbortTransaction")
	}
	fmt.Println("aborted")
	return nil
}

type cmdPing struct {
	cellTarget
	PingAncestors bool `long:"ping-ancestors" description:"also ping ancestor master transactions"`
}

func (cmd cmdPing) Execute(_ []string) error {
	var client, err = cmd.dial()
	if err != nil {
		return err
	}
	var txID hiveid.TransactionId
	if txID, err = cmd.transactionID(); err != nil {
		return err
	}
	var ctx, cancel = cmd.context()
	defer cancel()
	if _, err = client.PingTransaction(ctx, &hivepb.PingTransactionRequest{
		TransactionIdHi: txID.Hi,
		TransactionIdLo: txID.Lo,
		PingAncestors:   cmd.PingAncestors,
	}); err != nil {
		return errors.Wrap(err, "PingTransaction")
	}
	fmt.Println("alive")
	return nil
}

func parseCellID(s string) (hiveid.CellId, error) {
	var mid, err = hiveid.ParseMutationId(s)
	if err != nil {
		return hiveid.CellId{}, errors.Wrapf(err, "parsing cell id %q", s)
	}
	return hiveid.CellId{Hi: mid.Hi, Lo: mid.Lo}, nil
}
