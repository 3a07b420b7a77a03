// Command bankctl is a small client for the bank cards API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/andymarkow/bankcards/internal/apiclient"
	"github.com/andymarkow/bankcards/internal/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

const usage = `usage: bankctl [flags] <command> [args]

commands:
  login <username>                         print an access token
  cards [page] [size]                      list own cards
  balance                                  show total balance
  transfer <from> <to> <amount> [comment]  move funds between own cards
  block <card>                             ask an administrator to block a card
`

var errUsage = errors.New("invalid arguments")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)

		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}

		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fset := flag.NewFlagSet("bankctl", flag.ContinueOnError)

	addr := fset.String("a", envOr("BANKCTL_ADDRESS", "http://localhost:8080"), "server address [env:BANKCTL_ADDRESS]")
	token := fset.String("t", os.Getenv("BANKCTL_TOKEN"), "access token [env:BANKCTL_TOKEN]")
	timeout := fset.Duration("timeout", 30*time.Second, "request timeout")

	fset.Usage = func() { fmt.Fprint(fset.Output(), usage) }

	if err := fset.Parse(args); err != nil {
		return fmt.Errorf("fset.Parse: %w", err)
	}

	if fset.NArg() == 0 {
		return errUsage
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := apiclient.New(*addr,
		apiclient.WithToken(*token),
		apiclient.WithLogger(logger.NewLogger(logger.WithOutput(os.Stderr), logger.WithFormat(logger.LogFormatText))),
	)

	cmd, cmdArgs := fset.Arg(0), fset.Args()[1:]

	switch cmd {
	case "login":
		if len(cmdArgs) != 1 {
			return errUsage
		}

		fmt.Fprint(os.Stderr, "Password: ")

		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)

		if err != nil {
			return fmt.Errorf("term.ReadPassword: %w", err)
		}

		tokens, err := client.Login(ctx, cmdArgs[0], string(password))
		if err != nil {
			return fmt.Errorf("client.Login: %w", err)
		}

		fmt.Fprintln(out, tokens.AccessToken)

		return nil

	case "cards":
		page, size, err := pageArgs(cmdArgs)
		if err != nil {
			return err
		}

		result, err := client.Cards(ctx, page, size)
		if err != nil {
			return fmt.Errorf("client.Cards: %w", err)
		}

		return printJSON(out, result)

	case "balance":
		result, err := client.Balance(ctx)
		if err != nil {
			return fmt.Errorf("client.Balance: %w", err)
		}

		return printJSON(out, result)

	case "transfer":
		if len(cmdArgs) < 3 || len(cmdArgs) > 4 {
			return errUsage
		}

		from, err1 := strconv.ParseInt(cmdArgs[0], 10, 64)
		to, err2 := strconv.ParseInt(cmdArgs[1], 10, 64)
		amount, err3 := decimal.NewFromString(cmdArgs[2])

		if err := errors.Join(err1, err2, err3); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}

		var comment string
		if len(cmdArgs) == 4 {
			comment = cmdArgs[3]
		}

		result, err := client.Transfer(ctx, from, to, amount, comment)
		if err != nil {
			return fmt.Errorf("client.Transfer: %w", err)
		}

		return printJSON(out, result)

	case "block":
		if len(cmdArgs) != 1 {
			return errUsage
		}

		cardID, err := strconv.ParseInt(cmdArgs[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}

		result, err := client.RequestBlock(ctx, cardID)
		if err != nil {
			return fmt.Errorf("client.RequestBlock: %w", err)
		}

		return printJSON(out, result)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func pageArgs(args []string) (int, int, error) {
	page, size := 0, 20

	for i, dst := range []*int{&page, &size} {
		if i >= len(args) {
			break
		}

		v, err := strconv.Atoi(args[i])
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %w", errUsage, err)
		}

		*dst = v
	}

	return page, size, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("enc.Encode: %w", err)
	}

	return nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}
