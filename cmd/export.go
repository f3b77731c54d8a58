package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadscout/internal/model"
)

var (
	exportFormat  string
	exportOut     string
	exportColumns string
)

var exportHeader = []string{
	"channel_id", "username", "title", "category_tag",
	"members_count", "bio_text", "admin_contact", "scraped_date",
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored leads to CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export"); err != nil {
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

		cols, err := resolveColumns(exportColumns)
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = "leads." + exportFormat
		}

		switch strings.ToLower(exportFormat) {
		case "csv":
			err = exportCSV(out, cols, leads)
		case "xlsx":
			err = exportXLSX(out, cols, leads)
		default:
			return eris.Errorf("unsupported export format: %s", exportFormat)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d leads to %s\n", len(leads), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default leads.<format>)")
	exportCmd.Flags().StringVar(&exportColumns, "columns", "", "comma-separated columns to export (default all)")
	rootCmd.AddCommand(exportCmd)
}

// resolveColumns parses the --columns value. Requested columns keep their
// given order with duplicates dropped; an empty value selects all columns.
func resolveColumns(spec string) ([]string, error) {
	if strings.TrimSpace(spec) == "" {
		return exportHeader, nil
	}

	known := map[string]bool{}
	for _, h := range exportHeader {
		known[h] = true
	}

	var cols []string
	seen := map[string]bool{}
	for _, col := range strings.Split(spec, ",") {
		col = strings.TrimSpace(col)
		if col == "" || seen[col] {
			continue
		}
		if !known[col] {
			return nil, eris.Errorf("unknown export column: %s (known: %s)", col, strings.Join(exportHeader, ", "))
		}
		seen[col] = true
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return exportHeader, nil
	}
	return cols, nil
}

func columnValue(lead model.Lead, col string) string {
	switch col {
	case "channel_id":
		return strconv.FormatInt(lead.ChannelID, 10)
	case "username":
		return lead.Username
	case "title":
		return lead.Title
	case "category_tag":
		return lead.CategoryTag
	case "members_count":
		return strconv.Itoa(lead.MembersCount)
	case "bio_text":
		return lead.BioText
	case "admin_contact":
		return lead.AdminContact
	case "scraped_date":
		return lead.ScrapedDate.Format(time.RFC3339)
	}
	return ""
}

func exportCSV(path string, cols []string, leads []model.Lead) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, lead := range leads {
		row := make([]string, 0, len(cols))
		for _, col := range cols {
			row = append(row, columnValue(lead, col))
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush")
}

func exportXLSX(path string, cols []string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range cols {
		header.AddCell().SetString(h)
	}
	for _, lead := range leads {
		row := sheet.AddRow()
		for _, col := range cols {
			// Numeric columns keep their type so spreadsheets can sort them.
			switch col {
			case "channel_id":
				row.AddCell().SetInt64(lead.ChannelID)
			case "members_count":
				row.AddCell().SetInt(lead.MembersCount)
			default:
				row.AddCell().SetString(columnValue(lead, col))
			}
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
