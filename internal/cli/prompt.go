package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// stdin is shared by all prompts. A per-call bufio.Reader would buffer
// ahead and discard input meant for the next prompt when stdin is a pipe.
var stdin = bufio.NewReader(os.Stdin)

// PromptPassphrase reads a passphrase from the terminal without echo.
// Falls back to a plain stdin read when stdin is not a terminal (pipes,
// CI). Prompting is a thin adapter: issuance logic never prompts.
func PromptPassphrase(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)

	if term.IsTerminal(int(os.Stdin.Fd())) {
		passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return string(passBytes), nil
	}

	return readLine()
}

// PromptString reads a single line of input with a visible default.
// An empty answer returns the default.
func PromptString(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(os.Stderr, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(os.Stderr, "%s: ", label)
	}

	line, err := readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func readLine() (string, error) {
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
