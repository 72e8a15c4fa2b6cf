package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printProperties writes one row per property, or JSON with --json.
func printProperties(w io.Writer, items []types.Property) error {
	if flagJSON {
		return printJSON(w, items)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRICE\tCITY")
	for _, p := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Title, p.Status, formatPrice(p.Price), p.Address.City)
	}
	return tw.Flush()
}

// printProperty writes the full property as JSON; the text form is the
// same since a property has too many attributes for one row.
func printProperty(w io.Writer, p types.Property) error {
	return printJSON(w, p)
}

func formatPrice(p types.Price) string {
	if p.Amount == 0 && p.Currency == "" {
		return "-"
	}
	return fmt.Sprintf("%.2f %s", p.Amount, p.Currency)
}
