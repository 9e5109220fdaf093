// Command adduser registers a user, with the starter dataset, directly in the
// configured store.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Dan9191/smartbank/internal/app"
	"github.com/Dan9191/smartbank/internal/config"
	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/service"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "E-mail address")
	firstName := fs.String("first", "", "First name")
	lastName := fs.String("last", "", "Last name")
	phone := fs.String("phone", "", "Phone number (optional)")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *firstName == "" || *lastName == "" {
		fmt.Fprintln(stdout, "Usage: adduser -email <email> -first <first name> -last <last name> [-phone <phone>] [-password <password>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email, first, last")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	log := app.NewLogger(cfg.LogLevel)
	log.SetOutput(stderr)

	ctx := context.Background()
	rt, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	user, err := rt.Service.Auth.Register(ctx, service.RegisterInput{
		FirstName: *firstName,
		LastName:  *lastName,
		Email:     *email,
		Password:  password,
		Phone:     *phone,
	})
	if errors.Is(err, models.ErrDuplicateEmail) {
		return fmt.Errorf("user %s already exists", *email)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d\n", user.Email, user.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
