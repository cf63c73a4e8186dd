package cli

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rumbify/rumbify/internal/services/party"
)

// startsAtLayouts are accepted by --starts-at; times without a zone are UTC
var startsAtLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"}

func newPartyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "party",
		Short: "Party commands",
	}

	cmd.AddCommand(newPartyListCmd())
	cmd.AddCommand(newPartyGetCmd())
	cmd.AddCommand(newPartyCreateCmd())
	cmd.AddCommand(newPartyGuestsCmd())
	cmd.AddCommand(newPartyCodesCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

func partyPath(id string, rest ...string) string {
	return "/api/v1/parties/" + url.PathEscape(id) + strings.Join(rest, "")
}

func newPartyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all parties",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PartyList

			if err := client.Get(cmd.Context(), "/api/v1/parties", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPartyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get party details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PartyResult

			if err := client.Get(cmd.Context(), partyPath(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result.Party)
			return nil
		},
	}
}

func newPartyCreateCmd() *cobra.Command {
	var (
		name, description, location, startsAt string
		capacity                              int
		tiers                                 []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a party (admins only)",
		Example: `  rumbify party create --name "Launch Night" --starts-at 2026-12-31T22:00 \
    --tier "General: 15" --tier "VIP: 50.00"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseStartsAt(startsAt)
			if err != nil {
				return err
			}

			parsed, err := party.ParseTiers(strings.Join(tiers, "\n"))
			if err != nil {
				return err
			}
			priceTiers := make([]map[string]any, len(parsed))
			for i, t := range parsed {
				priceTiers[i] = map[string]any{"name": t.Name, "price_cents": t.PriceCents}
			}

			req := map[string]any{
				"name":        name,
				"description": description,
				"location":    location,
				"starts_at":   start,
				"capacity":    capacity,
				"price_tiers": priceTiers,
			}
			var result PartyResult

			if err := client.Post(cmd.Context(), "/api/v1/parties", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result.Party)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Party name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&location, "location", "", "Location")
	cmd.Flags().StringVar(&startsAt, "starts-at", "", "Start time, RFC 3339 or 2006-01-02T15:04 in UTC (required)")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "Capacity (informational)")
	cmd.Flags().StringArrayVar(&tiers, "tier", nil, `Price tier as "Name: price"; repeat for more tiers (required)`)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("starts-at")
	_ = cmd.MarkFlagRequired("tier")

	return cmd
}

func parseStartsAt(s string) (time.Time, error) {
	for _, layout := range startsAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --starts-at %q, use RFC 3339 or 2006-01-02T15:04", s)
}

func newPartyGuestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guests <id>",
		Short: "List checked-in guests (party owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result GuestList

			if err := client.Get(cmd.Context(), partyPath(args[0], "/guests"), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPartyCodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codes <id>",
		Short: "List a party's entry codes (party owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result CodeList

			if err := client.Get(cmd.Context(), partyPath(args[0], "/codes"), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
