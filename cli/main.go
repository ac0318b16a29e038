// Package main provides a terminal chat client for the tutoring server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/xiaot623/leetmentor/internal/client"
)

func main() {
	addr := flag.String("addr", "http://localhost:5000", "Tutor server address")
	transport := flag.String("transport", "rest", "Transport to use: rest or rpc")
	dataDir := flag.String("data", defaultDataDir(), "Directory for the saved session")
	timeout := flag.Duration("timeout", 2*time.Minute, "Per-request timeout")
	flag.Parse()

	log.SetFlags(log.Ltime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var api client.API
	switch *transport {
	case "rpc":
		fmt.Printf("Connecting to %s...\n", *addr)
		rpcAPI, err := client.DialRPC(ctx, *addr)
		if err != nil {
			log.Fatalf("Failed to connect: %v", err)
		}
		defer rpcAPI.Close()
		api = rpcAPI
	case "rest":
		api = client.NewHTTPAPI(*addr, *timeout)
	default:
		log.Fatalf("Unknown transport %q", *transport)
	}

	store := client.NewFileStore(*dataDir, client.DefaultKey)
	ctrl := client.NewController(api, store)

	restored, err := ctrl.Restore()
	if err != nil {
		log.Printf("Error loading saved session: %v", err)
	}
	if restored {
		st := ctrl.State()
		fmt.Printf("Resumed session for %s\n\n", st.LeetCodeURL)
		for _, m := range st.Messages {
			printTurn(string(m.Role), m.Content)
		}
	}

	fmt.Println("Commands: /new to start over, /progress, /quit to exit")

	lines := readLines(os.Stdin)

	for {
		if ctrl.State().SessionID == "" {
			fmt.Print("LeetCode problem URL: ")
		} else {
			fmt.Print("> ")
		}

		line, ok := nextLine(ctx, lines)
		if !ok {
			if ctx.Err() != nil {
				fmt.Println("\nInterrupted")
			}
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch input {
		case "/quit":
			fmt.Println("Bye!")
			return
		case "/new":
			if err := ctrl.Reset(); err != nil {
				log.Printf("Reset error: %v", err)
			}
			continue
		case "/progress":
			p, err := ctrl.Progress(ctx)
			if err != nil {
				log.Printf("Progress error: %v", err)
				continue
			}
			fmt.Printf("Progress: %s (%d messages)\n", p.Progress, p.MessageCount)
			continue
		}

		reqCtx, cancel := context.WithTimeout(ctx, *timeout)
		if ctrl.State().SessionID == "" {
			first, err := ctrl.Start(reqCtx, input)
			cancel()
			if err != nil {
				log.Printf("Failed to start session: %v", err)
				continue
			}
			printTurn("assistant", first)
			continue
		}

		reply, err := ctrl.Send(reqCtx, input)
		cancel()
		if err != nil {
			log.Printf("Send error: %v", err)
		}
		printTurn("assistant", reply)
	}
}

// readLines scans r on its own goroutine so the prompt can be interrupted
// while waiting for input. The channel closes at EOF.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// nextLine waits for a line or for ctx to end.
func nextLine(ctx context.Context, lines <-chan string) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-lines:
		return line, ok
	}
}

func printTurn(role, content string) {
	if role == "user" {
		fmt.Printf("you> %s\n\n", content)
		return
	}
	fmt.Printf("tutor> %s\n\n", content)
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "leetmentor")
}
