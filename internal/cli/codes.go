package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Entry code commands",
	}

	cmd.AddCommand(newCodesGenerateCmd())
	cmd.AddCommand(newCodesValidateCmd())
	cmd.AddCommand(newCodesRedeemCmd())

	return cmd
}

func newCodesGenerateCmd() *cobra.Command {
	var partyID, tier, tierID string
	var quantity int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate entry codes for a price tier (party owner only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tier == "" && tierID == "" {
				return fmt.Errorf("--tier or --tier-id is required")
			}

			req := map[string]any{
				"party_id": partyID,
				"quantity": quantity,
			}
			if tierID != "" {
				req["price_id"] = tierID
			} else {
				req["price_name"] = tier
			}
			var result GenerateResult

			if err := client.Post(cmd.Context(), "/api/v1/codes/generate", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&partyID, "party", "", "Party ID (required)")
	cmd.Flags().StringVar(&tier, "tier", "", "Price tier name")
	cmd.Flags().StringVar(&tierID, "tier-id", "", "Price tier ID")
	cmd.Flags().IntVarP(&quantity, "quantity", "n", 1, "Number of codes, 1 to 100")
	_ = cmd.MarkFlagRequired("party")

	return cmd
}

func newCodesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <code>",
		Short: "Check whether a code can still be redeemed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Validation

			if err := client.Post(cmd.Context(), "/api/v1/codes/validate", map[string]string{"code": args[0]}, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newCodesRedeemCmd() *cobra.Command {
	var partyID, userID string

	cmd := &cobra.Command{
		Use:   "redeem <code>",
		Short: "Redeem a code and join the guest list",
		Long: `Redeem a code for yourself. Admins may pass --user to check a member in
at a party they own.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"code": args[0]}
			if partyID != "" {
				req["party_id"] = partyID
			}
			if userID != "" {
				req["user_id"] = userID
			}
			var result RedeemResult

			if err := client.Post(cmd.Context(), "/api/v1/codes/redeem", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result.Guest)
			return nil
		},
	}

	cmd.Flags().StringVar(&partyID, "party", "", "Only redeem if the code belongs to this party")
	cmd.Flags().StringVar(&userID, "user", "", "User to check in (admins only)")

	return cmd
}
