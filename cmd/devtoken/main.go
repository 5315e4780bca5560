// devtoken mints a signed access token for local testing of the booking
// API.  The secret defaults to JWT_SECRET from the environment or .env.
//
//	devtoken --holder 7 --role CUSTOMER --ttl 1h
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/utils"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	var (
		holder uint64
		role   string
		secret string
		ttl    time.Duration
	)
	fs := pflag.NewFlagSet("devtoken", pflag.ContinueOnError)
	fs.Uint64Var(&holder, "holder", 1, "holder id placed in the sub claim")
	fs.StringVar(&role, "role", middleware.RoleCustomer, "role claim (CUSTOMER or OPERATOR)")
	fs.StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret")
	fs.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if secret == "" {
		return errors.New("no secret: set JWT_SECRET or pass --secret")
	}
	if role != middleware.RoleCustomer && role != middleware.RoleOperator {
		return fmt.Errorf("unknown role %q", role)
	}
	tok, err := utils.NewAccessToken(secret, holder, role, ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok.Token)
	return nil
}
