// Command useradd creates an account directly in the database. The password is
// read from the terminal without echo.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/spec-kit/chat-platform/internal/auth"
	"github.com/spec-kit/chat-platform/internal/config"
	"github.com/spec-kit/chat-platform/internal/domain"
	"github.com/spec-kit/chat-platform/internal/observability"
	"github.com/spec-kit/chat-platform/internal/persistence"
	"github.com/spec-kit/chat-platform/internal/repository"
	"github.com/spec-kit/chat-platform/internal/service"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

type accountCreator interface {
	CreateAccount(ctx context.Context, email, password string) (*domain.User, error)
}

func main() {
	cfg, err := config.Read()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pg.Close()

	accounts := service.NewAuthService(service.AuthDependencies{
		UserRepo: repository.NewUserRepository(pg.PoolHandle()),
		Hasher:   auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Logger:   logger,
	})

	if err := run(ctx, os.Args[1:], os.Stdout, accounts); err != nil {
		pg.Close()
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, w io.Writer, accounts accountCreator) error {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	fs.SetOutput(w)
	email := fs.String("email", "", "email address of the new account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}

	password, err := promptPassword(w, "Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword(w, "Repeat password: ")
	if err != nil {
		return err
	}
	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}

	user, err := accounts.CreateAccount(ctx, *email, string(password))
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return fmt.Errorf("%s already has an account", *email)
		}
		return err
	}
	fmt.Fprintf(w, "created account %d for %s\n", user.ID, user.Email)
	return nil
}

func promptPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}
