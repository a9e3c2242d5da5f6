package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"ircheck/internal/app/domain/irc"
)

// Parses raw protocol lines (argv or stdin) and prints the structured form,
// then the canonical re-serialization. Handy for eyeballing tag escapes.
func main() {
	lines := os.Args[1:]
	if len(lines) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
	}

	for _, line := range lines {
		line = strings.TrimRight(line, "\r\n")
		msg, err := irc.ParseMessage(line)
		if err != nil {
			log.Fatalf("parsing %q: %v", line, err)
		}

		fmt.Printf("command: %s\n", msg.Command)
		fmt.Printf("prefix:  %s (nick %s)\n", msg.Prefix, msg.Nick())
		for i, p := range msg.Params {
			fmt.Printf("param %d: %q\n", i, p)
		}
		for k, v := range msg.Tags {
			fmt.Printf("tag %s:  %q\n", k, v)
		}
		fmt.Printf("canonical: %s\n", msg.String())
	}
}
