package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"
)

const guestCheckedInEvent = "guest-checked-in"

func newWatchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Stream a party's check-ins as they happen (party owner only)",
		Long: `Connect to the party's guest-list event stream and print each guest as
their code is redeemed.

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamGuests(cmd, args[0], limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Exit after this many check-ins (0 streams until interrupted)")

	return cmd
}

// GuestEvent is one parsed event of the guest stream
type GuestEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
	Cells []string  `json:"cells,omitempty"`
}

func streamGuests(cmd *cobra.Command, partyID string, limit int) error {
	// The stream lives on the admin web app, which reads the session cookie
	streamURL := strings.TrimSuffix(cfg.ServerURL, "/") + "/admin/guests-events?id=" + url.QueryEscape(partyID)

	// Set up cancellation
	ctx, cancel := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	if cfg.Token != "" {
		req.AddCookie(&http.Cookie{
			Name:  "session",
			Value: cfg.Token,
		})
	}

	// No timeout for SSE; redirects mean the session was refused
	httpClient := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusSeeOther || resp.StatusCode == http.StatusFound:
		return fmt.Errorf("not signed in as an admin (redirected to %s)", resp.Header.Get("Location"))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	out := output(cmd)
	if cfg.Output != FormatJSON {
		out.PrintMessage(fmt.Sprintf("Watching party %s", partyID))
	}

	// Parse SSE stream
	scanner := bufio.NewScanner(resp.Body)
	var currentEvent string
	var dataLines []string
	seen := 0

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "event: ") {
			currentEvent = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		} else if line == "" {
			// End of event
			if currentEvent == guestCheckedInEvent {
				data := strings.Join(dataLines, "\n")
				out.Print(GuestEvent{
					Time:  time.Now(),
					Event: currentEvent,
					Data:  data,
					Cells: rowCells(data),
				})
				seen++
				if limit > 0 && seen >= limit {
					return nil
				}
			}
			currentEvent = ""
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil {
		// Context cancellation is expected
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("stream error: %w", err)
	}

	if cfg.Output != FormatJSON {
		out.PrintMessage("Disconnected")
	}
	return nil
}

// rowCells extracts the cell texts of a rendered guest table row
func rowCells(fragment string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<table><tbody>" + fragment + "</tbody></table>"))
	if err != nil {
		return nil
	}
	var cells []string
	doc.Find("td").Each(func(_ int, s *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(s.Text()))
	})
	return cells
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
