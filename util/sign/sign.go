// Command sign signs key login challenges with an Ed25519 private key.
//
// Without --server it reads base64 challenges from stdin, one per line. With
// --server it fetches the current challenge, signs it and verifies the
// signature against the server, printing the resulting auth token.
package main

import (
	"bufio"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/routes"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	outputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func loadPrivateKey(filename string) (ed25519.PrivateKey, error) {
	privKeyBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(privKeyBytes)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	privKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	edPriv, ok := privKey.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("not an Ed25519 private key")
	}
	return edPriv, nil
}

func signChallenge(key ed25519.PrivateKey, challengeB64 string) (string, error) {
	challenge, err := base64.StdEncoding.DecodeString(challengeB64)
	if err != nil {
		return "", fmt.Errorf("invalid base64: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(key, challenge)), nil
}

// interactive signs every challenge read from in until EOF or "quit".
func interactive(key ed25519.PrivateKey, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Enter challenges one by one. Type 'quit' to exit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("Enter challenge (base64): "))
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			break
		}

		sig, err := signChallenge(key, line)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
			continue
		}
		fmt.Fprintln(out, outputStyle.Render("Signature: "+sig))
	}
	return scanner.Err()
}

// login runs the challenge/verify exchange against a running server and
// returns the auth token it accepted.
func login(client *http.Client, server string, key ed25519.PrivateKey) (string, error) {
	server = strings.TrimSuffix(server, "/")

	resp, err := client.Get(server + routes.AuthChallenge)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("challenge request failed: %s", resp.Status)
	}

	var body struct {
		Challenge string `json:"challenge"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode challenge: %w", err)
	}

	sig, err := signChallenge(key, body.Challenge)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, server+routes.AuthVerify, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(config.HeaderAuthorize, sig)

	verify, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer verify.Body.Close()
	if verify.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(verify.Body, 512))
		return "", fmt.Errorf("verification failed: %s: %s", verify.Status, strings.TrimSpace(string(msg)))
	}
	return sig, nil
}

func newRootCmd() *cobra.Command {
	var keyPath, server string

	cmd := &cobra.Command{
		Use:          "sign",
		Short:        "Sign key login challenges",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := loadPrivateKey(keyPath)
			if err != nil {
				return fmt.Errorf("failed to load private key: %w", err)
			}

			if server == "" {
				return interactive(key, cmd.InOrStdin(), cmd.OutOrStdout())
			}

			token, err := login(&http.Client{Timeout: 10 * time.Second}, server, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outputStyle.Render(config.CookieAuthToken+"="+token))
			return nil
		},
	}

	cmd.Flags().StringVar(&keyPath, "key", "privkey.pem", "PKCS#8 PEM encoded Ed25519 private key")
	cmd.Flags().StringVar(&server, "server", "", "base URL of a running server to log in to")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
