package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/indeksai/indeksai/internal/assistant"
	"github.com/indeksai/indeksai/internal/conversation"
)

// --- Chat Command ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start interactive chat mode",
	Long: `Start an interactive conversation. The session remembers earlier turns.

Commands:
  /reset   clear the conversation
  /stats   show the question count
  /exit    quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a := newApp()
		store := conversation.NewStore()

		fmt.Println(assistant.Greeting)
		fmt.Println()
		fmt.Println("⚠️  " + assistant.Disclaimer)
		fmt.Println()

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("› ")
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			switch strings.ToLower(line) {
			case "/exit", "/quit":
				return nil
			case "/reset":
				store.Clear()
				fmt.Println("🔄 Percakapan dihapus.")
				fmt.Println()
				continue
			case "/stats":
				fmt.Printf("%s: %d\n\n", assistant.QuestionCountLabel, store.UserCount())
				continue
			}

			reply := a.assistant.Respond(ctx, store, line)
			fmt.Println()
			printResponse(os.Stdout, reply.Response)
			fmt.Println()

			if ctx.Err() != nil {
				return nil
			}
		}
	},
}

// printResponse writes an answer for a terminal. Weekly answers get an
// aligned table in place of the markdown one.
func printResponse(w io.Writer, resp assistant.Response) {
	if resp.Mode != assistant.ModeWeekly || resp.Table == nil {
		fmt.Fprintln(w, resp.Text)
		return
	}

	text, _, _ := strings.Cut(resp.Text, assistant.TableHeading)
	fmt.Fprintln(w, strings.TrimRight(text, "\n"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "📋 Tabel Data Lengkap:")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(assistant.TableColumns, "\t")+"\t")
	for _, row := range assistant.TableRows(resp.Table) {
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	tw.Flush()
}
