package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"FinFolio/internal/domain/models"
)

// readRequest asks the interactive questions and composes the request text.
func readRequest(in io.Reader, out io.Writer) (string, error) {
	r := bufio.NewReader(in)
	fmt.Fprintln(out, "Welcome to FinFolio. Answer a few questions to build your portfolio.")

	capitalText, err := ask(r, out, "Investment capital in USD (optional, e.g. 10000): ")
	if err != nil {
		return "", err
	}
	horizon, err := askRequired(r, out, "Time horizon (e.g. 5 years, long-term): ")
	if err != nil {
		return "", err
	}
	risk, err := askRequired(r, out, "Risk tolerance (low, medium, high): ")
	if err != nil {
		return "", err
	}
	prefs, err := ask(r, out, "Specific preferences (optional, e.g. focus on tech, avoid oil): ")
	if err != nil {
		return "", err
	}

	return models.ComposeRequest(parseCapital(capitalText), horizon, risk, prefs), nil
}

func ask(r *bufio.Reader, out io.Writer, label string) (string, error) {
	v, _, err := readLine(r, out, label)
	return v, err
}

func askRequired(r *bufio.Reader, out io.Writer, label string) (string, error) {
	for {
		v, eof, err := readLine(r, out, label)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
		if eof {
			return "", fmt.Errorf("no answer for %q", strings.TrimSuffix(strings.TrimSpace(label), ":"))
		}
		fmt.Fprintln(out, "This field is required.")
	}
}

func readLine(r *bufio.Reader, out io.Writer, label string) (string, bool, error) {
	fmt.Fprint(out, label)
	line, err := r.ReadString('\n')
	if errors.Is(err, io.EOF) {
		return strings.TrimSpace(line), true, nil
	}
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(line), false, nil
}

// parseCapital accepts "10000", "$10,000" or "2500.50". Anything else,
// including non-positive amounts, means no amount was given.
func parseCapital(s string) *float64 {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}
