package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fentz26/tempo/internal/auth"
	"github.com/fentz26/tempo/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login [token]",
	Short: "Store the API token used to reach the daemon",
	Long: `Stores the daemon's API token in ~/.tempo/credentials.json. Without an argument
the token is read from stdin, hidden when stdin is a terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API token",
	RunE:  runLogout,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate a random API token for http.api_token",
	RunE:  runToken,
}

func runLogin(cmd *cobra.Command, args []string) error {
	m, err := auth.NewManager(config.DataDir())
	if err != nil {
		return err
	}

	token := ""
	if len(args) == 1 {
		token = args[0]
	} else {
		token, err = readToken()
		if err != nil {
			return err
		}
	}

	if err := m.Login(token); err != nil {
		return err
	}
	fmt.Println("Token saved.")

	if _, err := CheckHealth(); err != nil {
		fmt.Printf("Warning: daemon check failed: %v\n", err)
	}
	return nil
}

func readToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("API token: ")
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	m, err := auth.NewManager(config.DataDir())
	if err != nil {
		return err
	}
	if err := m.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	tok, err := auth.GenerateToken()
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
