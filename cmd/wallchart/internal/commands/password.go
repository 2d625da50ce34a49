package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/wolfeidau/wallchart/internal/auth"
)

// HashPasswordCmd prints a hash usable as WALLCHART_ADMIN_PASSWORD so the
// plain password never has to be stored.
type HashPasswordCmd struct {
	Cost int `help:"bcrypt cost" default:"10"`
}

func (c *HashPasswordCmd) Validate() error {
	if c.Cost < bcrypt.MinCost || c.Cost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

func (c *HashPasswordCmd) Run(_ context.Context, _ *Globals) error {
	return c.run(os.Stdin, os.Stdout)
}

func (c *HashPasswordCmd) run(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("password must not be empty")
	}
	if password == defaultAdminPassword {
		return errors.New("password must not be the default password")
	}

	hash, err := auth.BcryptVerifier{Cost: c.Cost}.Hash(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
