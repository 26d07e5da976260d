// Package admin implements the operator command line: purging all users,
// deleting one user and setting a password directly in the store.
package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
)

const usage = `usage: admin <command> [args] [flags]

commands:
  purge-users              delete every user and task
  delete-user <username>   delete one user and their tasks
  set-password <username>  set a new password, read from the terminal
  help                     show this message

flags:
  -d string  database connection string
  -c string  JSON config file
  -y         do not ask for confirmation`

// ErrUsage is returned for unknown commands or missing arguments.
var ErrUsage = errors.New("invalid usage")

type App struct {
	admin *services.Admin
	in    *bufio.Reader
	out   io.Writer
}

func NewApp(repos repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		admin: services.NewAdmin(repos, cryptox.NewHasher(cfg.BcryptCost), logger),
		in:    bufio.NewReader(in),
		out:   out,
	}
}

// Run executes one command. args excludes the program name.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	yes := hasFlag(rest, "-y")

	switch cmd {
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil

	case "purge-users":
		if !yes && !a.confirm("This deletes ALL users and tasks.") {
			fmt.Fprintln(a.out, "Aborted.")
			return nil
		}
		users, tasks, err := a.admin.PurgeUsers(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted %d users and %d tasks.\n", users, tasks)
		return nil

	case "delete-user":
		username, err := positional(rest)
		if err != nil {
			return err
		}
		if !yes && !a.confirm(fmt.Sprintf("This deletes user %q and their tasks.", username)) {
			fmt.Fprintln(a.out, "Aborted.")
			return nil
		}
		if err := a.admin.DeleteUser(ctx, username); err != nil {
			return userError(username, err)
		}
		fmt.Fprintf(a.out, "Deleted user %s.\n", username)
		return nil

	case "set-password":
		username, err := positional(rest)
		if err != nil {
			return err
		}
		password, err := getPassword(a.out)
		if err != nil {
			return err
		}
		if err := a.admin.SetPassword(ctx, username, password); err != nil {
			return userError(username, err)
		}
		fmt.Fprintf(a.out, "Password updated for %s.\n", username)
		return nil
	}

	fmt.Fprintln(a.out, usage)
	return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
}

func (a *App) confirm(warning string) bool {
	answer, err := getSimpleText(a.in, warning+" Type 'yes' to continue", a.out)
	return err == nil && answer == "yes"
}

func positional(args []string) (string, error) {
	if len(args) == 0 || len(args[0]) == 0 || args[0][0] == '-' {
		return "", fmt.Errorf("%w: username required", ErrUsage)
	}
	return args[0], nil
}

func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name || a == "-"+name {
			return true
		}
	}
	return false
}

func userError(username string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("user %q not found", username)
	}
	return err
}
