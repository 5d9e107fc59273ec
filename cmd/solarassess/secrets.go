package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"solarassess/pkg/config"
)

// passwordReader reads one line without echo.
type passwordReader func() ([]byte, error)

func terminalReader() passwordReader {
	return func() ([]byte, error) {
		return term.ReadPassword(int(os.Stdin.Fd()))
	}
}

// secretPrompts are the credentials -init-secrets asks for, in order.
var secretPrompts = []string{
	config.EnvGoogleAPIKey,
	config.EnvAnthropicAPIKey,
	config.EnvOpenAIAPIKey,
	config.EnvOllamaHost,
}

// unlockSecrets decrypts .solar/secrets.json.enc when present, using SOLAR_PASSWORD or a prompt.
func unlockSecrets(projectDir string) error {
	if !config.SecretsFileExists(projectDir) {
		return nil
	}

	password := os.Getenv(config.EnvPassword)
	if password == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("secrets file is encrypted: set %s or run interactively", config.EnvPassword)
		}
		fmt.Print("Enter the project password: ")
		raw, err := terminalReader()()
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	}

	n, err := config.UnlockSecrets(projectDir, password)
	if err != nil {
		return err //nolint:wrapcheck // config errors are descriptive
	}
	config.LogInfo("Loaded %d secret(s) from %s", n, config.SecretsFilePath(projectDir))
	return nil
}

// initSecrets prompts for a password and provider credentials, then writes the encrypted file.
func initSecrets(projectDir string) error {
	if config.SecretsFileExists(projectDir) {
		return fmt.Errorf("%s already exists; remove it first or manage keys through the web UI", config.SecretsFilePath(projectDir))
	}

	read := terminalReader()
	password, err := promptForPassword(read, os.Stdout)
	if err != nil {
		return err
	}
	secrets, err := collectSecrets(read, os.Stdout, secretPrompts)
	if err != nil {
		return err
	}
	if len(secrets) == 0 {
		return errors.New("no credentials entered")
	}

	if err := config.WriteCredentialsFile(projectDir, password, secrets); err != nil {
		return fmt.Errorf("failed to encrypt secrets: %w", err)
	}
	fmt.Printf("Credentials saved to %s (file permissions: 0600)\n", config.SecretsFilePath(projectDir))
	return nil
}

// promptForPassword prompts for a password with confirmation.
func promptForPassword(read passwordReader, out io.Writer) (string, error) {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fmt.Fprint(out, "Enter a password for this project: ")
		password1, err := read()
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		fmt.Fprint(out, "Confirm password: ")
		password2, err := read()
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		if len(password1) == 0 {
			fmt.Fprintln(out, "Password must not be empty.")
			continue
		}
		if !bytes.Equal(password1, password2) {
			fmt.Fprintln(out, "Passwords do not match. Please try again.")
			continue
		}

		password := string(password1)
		clear(password1)
		clear(password2)
		return password, nil
	}
	return "", fmt.Errorf("no valid password after %d attempts", maxAttempts)
}

// collectSecrets asks for each name; empty answers are skipped.
func collectSecrets(read passwordReader, out io.Writer, names []string) (map[string]string, error) {
	secrets := make(map[string]string, len(names))
	for _, name := range names {
		fmt.Fprintf(out, "%s (leave empty to skip): ", name)
		value, err := read()
		fmt.Fprintln(out)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if v := string(bytes.TrimSpace(value)); v != "" {
			secrets[name] = v
		}
	}
	return secrets, nil
}
