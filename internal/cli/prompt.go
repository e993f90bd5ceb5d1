package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mfadaei/tgsum/internal/filter"
)

// readLine prints prompt and returns one trimmed input line. io.EOF
// when input is exhausted.
func (u *UI) readLine(prompt string) (string, error) {
	fmt.Fprint(u.out, prompt)
	if !u.in.Scan() {
		if err := u.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(u.in.Text()), nil
}

// promptRange loops until the user enters an integer in [lo, hi].
func (u *UI) promptRange(prompt string, lo, hi int) (int, error) {
	for {
		line, err := u.readLine(prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < lo || n > hi {
			fmt.Fprintf(u.out, "Please enter a number between %d and %d.\n", lo, hi)
			continue
		}
		return n, nil
	}
}

// promptPositive loops until the user enters a positive integer.
func (u *UI) promptPositive(prompt string) (int, error) {
	for {
		line, err := u.readLine(prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(line)
		if err != nil || n <= 0 {
			fmt.Fprintln(u.out, "Please enter a positive number.")
			continue
		}
		return n, nil
	}
}

// promptDate loops until the user enters a valid, non-future calendar
// date like "10 March 2025".
func (u *UI) promptDate(prompt string) (filter.Filter, error) {
	for {
		line, err := u.readLine(prompt)
		if err != nil {
			return filter.Filter{}, err
		}
		f, err := filter.ParseSpecificDate(line, u.loc, time.Now())
		if err != nil {
			fmt.Fprintf(u.out, "%v. Use 'DD Month YYYY' (e.g., '10 March 2025').\n", err)
			continue
		}
		return f, nil
	}
}

// confirm asks a yes/no question; anything but "yes" is a no.
func (u *UI) confirm(prompt string) (bool, error) {
	line, err := u.readLine(prompt + " (yes/no): ")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(line, "yes"), nil
}
