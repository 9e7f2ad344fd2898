package admincli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/server/services"
)

const minPasswordLength = 8

// SeedFunc creates the super admin and reports whether one was created.
type SeedFunc func(ctx context.Context, seed services.AdminSeed) (bool, error)

// MigrateFunc applies the database migrations.
type MigrateFunc func(ctx context.Context) error

var ErrUnknownCommand = errors.New("unknown command")

type App struct {
	in          *bufio.Reader
	out         io.Writer
	seed        SeedFunc
	migrate     MigrateFunc
	defaultName string
}

func NewApp(in io.Reader, out io.Writer, defaultName string, seed SeedFunc, migrate MigrateFunc) *App {
	return &App{in: bufio.NewReader(in), out: out, seed: seed, migrate: migrate, defaultName: defaultName}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: learnhub-admin <command> [flags]")
	fmt.Fprintln(a.out, "Commands: migrate, seed [-email addr] [-name \"Full Name\"], help")
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return nil
	}

	switch args[0] {
	case "help", "-h", "--help":
		a.usage()
		return nil
	case "migrate":
		if err := a.migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(a.out, "Migrations applied.")
		return nil
	case "seed":
		return a.runSeed(ctx, args[1:])
	default:
		a.usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
}

func (a *App) runSeed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "super admin email")
	name := fs.String("name", a.defaultName, "super admin full name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		v, err := GetSimpleText(a.in, "Super admin email", a.out)
		if err != nil {
			return err
		}
		*email = v
	}
	if *email == "" {
		return errors.New("email is required")
	}

	password, err := a.readNewPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	created, err := a.seed(ctx, services.AdminSeed{
		Email:    *email,
		FullName: *name,
		Password: string(password),
	})
	if err != nil {
		return err
	}

	if created {
		fmt.Fprintf(a.out, "Super admin %s created.\n", common.NormalizeEmail(*email))
	} else {
		fmt.Fprintln(a.out, "An admin already exists, nothing to do.")
	}
	return nil
}

// readNewPassword asks twice and checks both entries match.
func (a *App) readNewPassword() ([]byte, error) {
	first, err := GetPassword("Password", a.out)
	if err != nil {
		return nil, err
	}
	second, err := GetPassword("Repeat password", a.out)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		return nil, errors.New("passwords do not match")
	}
	if len(first) < minPasswordLength {
		common.WipeByteArray(first)
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return first, nil
}
