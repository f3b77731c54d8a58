package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var leadsJSON bool

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect stored leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored leads, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("leads"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		leads, err := st.ListLeads(ctx)
		if err != nil {
			return err
		}

		if leadsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(leads)
		}

		if len(leads) == 0 {
			fmt.Println("No leads stored yet.")
			return nil
		}
		for _, lead := range leads {
			contact := lead.AdminContact
			if contact == "" {
				contact = "-"
			}
			fmt.Printf("%-12d @%-24s %-32s %8d  %-12s %s\n",
				lead.ChannelID, lead.Username, lead.Title,
				lead.MembersCount, lead.CategoryTag, contact)
		}
		return nil
	},
}

var leadsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("leads"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		n, err := st.CountLeads(ctx)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

func init() {
	leadsListCmd.Flags().BoolVar(&leadsJSON, "json", false, "emit JSON instead of a table")
	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsCountCmd)
	rootCmd.AddCommand(leadsCmd)
}
