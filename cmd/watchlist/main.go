package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jun/watchlist/internal/client"
	"github.com/jun/watchlist/internal/logging"
	"github.com/jun/watchlist/internal/ui"
)

const usage = `usage: watchlist [flags] <command>

commands:
  list                 show the watch list
  add NAME             add an item
  rename ID NAME       rename an item
  rm ID                delete an item
  upload ID FILE       attach a video to an item
`

func main() {
	envErr := godotenv.Load()

	fs := flag.NewFlagSet("watchlist", flag.ExitOnError)
	apiURL := fs.String("api", os.Getenv("WATCHLIST_API_URL"), "API base URL")
	token := fs.String("token", os.Getenv("WATCHLIST_TOKEN"), "bearer token")
	timeout := fs.Duration("timeout", 5*time.Minute, "request timeout")
	verbose := fs.Bool("v", false, "log requests")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.Configure(level, "console", os.Stderr)
	warnEnv(logger, envErr)

	if *apiURL == "" || *token == "" {
		fmt.Fprintln(os.Stderr, "both -api and -token (or WATCHLIST_API_URL and WATCHLIST_TOKEN) are required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), *timeout)
	defer cancel()

	if err := run(ctx, client.New(*apiURL), *token, fs.Args(), os.Stdout); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			fs.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid command")

// warnEnv reports a .env file that exists but could not be read.
func warnEnv(logger zerolog.Logger, err error) {
	if err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("failed to read .env")
	}
}

func run(ctx context.Context, api ui.API, token string, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	list := ui.NewListView(api, token)
	switch cmd, args := args[0], args[1:]; {
	case cmd == "list" && len(args) == 0:
		if err := list.Load(ctx); err != nil {
			return err
		}
		printItems(out, list)
		return nil

	case cmd == "add" && len(args) == 1:
		if err := list.Create(ctx, args[0]); err != nil {
			return err
		}
		item := list.Items[len(list.Items)-1]
		fmt.Fprintf(out, "added %s\t%s\n", item.ItemID, item.Name)
		return nil

	case cmd == "rename" && len(args) == 2:
		if err := list.Load(ctx); err != nil {
			return err
		}
		pos := list.Index(args[0])
		if pos < 0 {
			return fmt.Errorf("no item %s", args[0])
		}
		if err := list.Rename(ctx, pos, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "renamed %s\t%s\n", list.Items[pos].ItemID, list.Items[pos].Name)
		return nil

	case cmd == "rm" && len(args) == 1:
		if err := list.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", args[0])
		return nil

	case cmd == "upload" && len(args) == 2:
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		if err := list.Load(ctx); err != nil {
			return err
		}
		edit, err := list.Edit(args[0])
		if err != nil {
			return err
		}
		edit.OnStateChange = func(s ui.UploadState) {
			if s != ui.UploadIdle {
				fmt.Fprintln(out, s)
			}
		}
		edit.SetFile(f)
		if err := edit.Submit(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "File was uploaded!")
		return nil
	}
	return errUsage
}

func printItems(out io.Writer, list *ui.ListView) {
	if len(list.Items) == 0 {
		fmt.Fprintln(out, "watch list is empty")
		return
	}
	for _, item := range list.Items {
		fmt.Fprintf(out, "%s\t%s", item.ItemID, item.Name)
		if item.AttachmentURL != "" {
			fmt.Fprintf(out, "\t%s", item.AttachmentURL)
		}
		fmt.Fprintln(out)
	}
}
