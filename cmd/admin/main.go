// Command admin manages operator accounts.
//
//	admin create-user -email ana@hemocentro.org -name "Ana Lima" [-admin]
//	admin set-admin -email ana@hemocentro.org [-revoke]
//	admin reset-password -email ana@hemocentro.org
//
// Passwords are read from the terminal without echo, or from the first line
// of stdin when it is not a terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/hemoglovida/dashboard/backend/internal/adapters/cache"
	"github.com/hemoglovida/dashboard/backend/internal/adapters/database"
	"github.com/hemoglovida/dashboard/backend/internal/adapters/events"
	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/clients/postgres"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	"github.com/hemoglovida/dashboard/backend/pkg/config"
)

// accounts is the slice of the auth service this command drives
type accounts interface {
	CreateUser(ctx context.Context, email, name, pass, facilityID string, admin bool) (*entities.User, error)
	SetAdmin(ctx context.Context, email string, admin bool) (*entities.User, error)
	ResetPassword(ctx context.Context, email, pass string) error
}

// passwordReader returns the password to use for an account
type passwordReader func(prompt string) (string, error)

var errUsage = errors.New("usage: admin <create-user|set-admin|reset-password> [flags]")

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	lru, err := cache.NewLRUAdapter(64)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create cache")
	}
	bus := events.NewMemoryEventBus()
	defer bus.Close()

	loc, err := cfg.Scheduling.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid scheduling time zone")
	}
	auth := services.NewAuthService(database.NewUserAdapter(pgClient), lru, bus, &cfg.Auth, calendar.SystemClock{Location: loc})

	if err := run(ctx, os.Args[1:], auth, cfg.Facility.ID, terminalPassword(os.Stdin, os.Stderr), os.Stdout); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, errUsage)
			os.Exit(2)
		}
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, svc accounts, facilityID string, readPassword passwordReader, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	email := fs.String("email", "", "account email")

	switch args[0] {
	case "create-user":
		name := fs.String("name", "", "display name")
		admin := fs.Bool("admin", false, "grant the admin claim")
		if err := parse(fs, args[1:], email); err != nil {
			return err
		}
		pass, err := readConfirmedPassword(readPassword)
		if err != nil {
			return err
		}
		user, err := svc.CreateUser(ctx, *email, *name, pass, facilityID, *admin)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created %s (%s) admin=%t\n", user.Email, user.ID, user.IsAdmin)

	case "set-admin":
		revoke := fs.Bool("revoke", false, "remove the admin claim instead of granting it")
		if err := parse(fs, args[1:], email); err != nil {
			return err
		}
		user, err := svc.SetAdmin(ctx, *email, !*revoke)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s admin=%t\n", user.Email, user.IsAdmin)

	case "reset-password":
		if err := parse(fs, args[1:], email); err != nil {
			return err
		}
		pass, err := readConfirmedPassword(readPassword)
		if err != nil {
			return err
		}
		if err := svc.ResetPassword(ctx, *email, pass); err != nil {
			return err
		}
		fmt.Fprintf(out, "password updated for %s\n", *email)

	default:
		return errUsage
	}
	return nil
}

func parse(fs *flag.FlagSet, args []string, email *string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return fmt.Errorf("%s: -email is required", fs.Name())
	}
	return nil
}

func readConfirmedPassword(read passwordReader) (string, error) {
	pass, err := read("Password: ")
	if err != nil {
		return "", err
	}
	again, err := read("Confirm password: ")
	if err != nil {
		return "", err
	}
	if pass != again {
		return "", errors.New("passwords do not match")
	}
	return pass, nil
}

// terminalPassword prompts without echo on a terminal and otherwise reads
// one line per call from in.
func terminalPassword(in *os.File, prompt io.Writer) passwordReader {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		scanner := bufio.NewScanner(in)
		var last string
		return func(string) (string, error) {
			if scanner.Scan() {
				last = scanner.Text()
				return last, nil
			}
			if err := scanner.Err(); err != nil {
				return "", err
			}
			// a single piped line serves as its own confirmation
			if last != "" {
				return last, nil
			}
			return "", io.ErrUnexpectedEOF
		}
	}

	return func(p string) (string, error) {
		fmt.Fprint(prompt, p)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
