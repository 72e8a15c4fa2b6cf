package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mesh-intelligence/propsync/internal/view"
)

// listQueryKeys are the projection parameters exposed as flags. A flag is
// named after its key with underscores turned into dashes.
var listQueryKeys = []string{
	"search", "city",
	"min_price", "max_price",
	"min_bedrooms", "max_bedrooms",
	"min_bathrooms", "max_bathrooms",
	"min_area", "max_area",
	"featured", "verified", "published",
	"sort", "order", "page", "limit",
}

// listRepeatedKeys accept several values.
var listRepeatedKeys = []string{"type", "listing_type", "status"}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List properties with filters, sorting and paging",
	Long: `List loads the collection and prints one page of the properties that
match every given filter.

Example:
  propdash list --city nairobi --status available --sort price --order desc
  propdash list --type apartment --type house --min-bedrooms 2 --page 2`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	for _, key := range listQueryKeys {
		listCmd.Flags().String(flagName(key), "", "filter or paging parameter "+key)
	}
	for _, key := range listRepeatedKeys {
		listCmd.Flags().StringArray(flagName(key), nil, "repeatable filter "+key)
	}
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// listQuery turns the changed flags into query parameters.
func listQuery(flags *pflag.FlagSet) url.Values {
	q := url.Values{}
	for _, key := range listQueryKeys {
		if f := flags.Lookup(flagName(key)); f != nil && f.Changed {
			q.Set(key, f.Value.String())
		}
	}
	for _, key := range listRepeatedKeys {
		values, err := flags.GetStringArray(flagName(key))
		if err == nil && len(values) > 0 {
			q[key] = values
		}
	}
	return q
}

func runList(cmd *cobra.Command, args []string) error {
	req, err := view.ParseQuery(listQuery(cmd.Flags()))
	if err != nil {
		return usageError{err: err}
	}

	a, err := openApp(cmd.Context(), cfg, appOptions{load: true})
	if err != nil {
		return err
	}
	defer a.Close()

	proj := req.Project(a.store.List())
	out := cmd.OutOrStdout()
	if flagJSON {
		return printJSON(out, proj)
	}
	if err := printProperties(out, proj.Items); err != nil {
		return err
	}
	pg := proj.Pagination
	fmt.Fprintf(out, "page %d of %d (%d total)\n", pg.Page, pg.TotalPages, pg.Total)
	return nil
}
