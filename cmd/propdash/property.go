package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

// Patch input flags shared by create and update.
var (
	patchData  string
	patchFile  string
	patchTitle string
)

func addPatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&patchData, "data", "", "property attributes as a JSON object")
	cmd.Flags().StringVar(&patchFile, "file", "", "read the JSON object from a file, or - for stdin")
	cmd.Flags().StringVar(&patchTitle, "title", "", "title, overriding any title in the JSON")
}

// readPatch builds a patch from --data or --file, then applies --title.
// Unknown attributes are rejected.
func readPatch(cmd *cobra.Command) (types.PropertyPatch, error) {
	var patch types.PropertyPatch
	var raw []byte
	switch {
	case patchData != "" && patchFile != "":
		return patch, userErrorf("--data and --file are mutually exclusive")
	case patchData != "":
		raw = []byte(patchData)
	case patchFile == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return patch, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case patchFile != "":
		b, err := os.ReadFile(patchFile)
		if err != nil {
			return patch, userErrorf("read %s: %w", patchFile, err)
		}
		raw = b
	}

	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&patch); err != nil {
			return patch, userErrorf("invalid property JSON: %w", err)
		}
	}
	if cmd.Flags().Changed("title") {
		title := patchTitle
		patch.Title = &title
	}
	return patch, nil
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a property by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg, appOptions{load: true})
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.store.Get(args[0])
		if err != nil {
			return fmt.Errorf("property %q: %w", args[0], err)
		}
		return printProperty(cmd.OutOrStdout(), p)
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a property",
	Long: `Create validates the attributes, writes them to the backend and prints
the stored property.

Example:
  propdash create --title "Garden flat" --data '{"price":{"amount":1500,"currency":"KES"}}'
  propdash create --file listing.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := readPatch(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), cfg, appOptions{load: true, events: true})
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.store.Create(cmd.Context(), patch)
		if err != nil {
			return err
		}
		return printProperty(cmd.OutOrStdout(), p)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update attributes of a property",
	Long: `Update writes only the attributes present in the input; absent
attributes keep their stored values.

Example:
  propdash update 0192f0c4-... --data '{"status":"sold"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := readPatch(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), cfg, appOptions{load: true, events: true})
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.store.Update(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		return printProperty(cmd.OutOrStdout(), p)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id> [id...]",
	Short: "Delete one or more properties",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg, appOptions{load: true, events: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			err = a.store.Delete(cmd.Context(), args[0])
		} else {
			err = a.store.BulkDelete(cmd.Context(), args)
		}
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), map[string]int{"deleted": len(args)})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", len(args))
		return nil
	},
}

var counterCmd = &cobra.Command{
	Use:   "counter <id> <views|inquiries|favorites|shares>",
	Short: "Increment an analytics counter",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg, appOptions{load: true, events: true})
		if err != nil {
			return err
		}
		defer a.Close()

		counter := types.Counter(args[1])
		value, err := a.store.IncrementCounter(cmd.Context(), args[0], counter)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), map[string]any{"id": args[0], "counter": counter, "value": value})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %d\n", args[0], counter, value)
		return nil
	},
}

func init() {
	addPatchFlags(createCmd)
	addPatchFlags(updateCmd)
}
