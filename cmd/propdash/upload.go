package main

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/propsync/internal/upload"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file> [file...]",
	Short: "Upload media files and print their URLs",
	Long: `Upload stores each file in the bucket for its media kind, falls back to
the general bucket, and finally inlines small files as data URIs. One URL
is printed per stored file, in argument order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

// detectContentType prefers the extension and falls back to sniffing.
func detectContentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func readUploadFiles(names []string) ([]upload.File, error) {
	files := make([]upload.File, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, userErrorf("read %s: %w", name, err)
		}
		files = append(files, upload.File{
			Name:        filepath.Base(name),
			ContentType: detectContentType(name, data),
			Data:        data,
		})
	}
	return files, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	files, err := readUploadFiles(args)
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.uploader == nil {
		return usageError{err: errNoObjectStorage}
	}

	urls, err := a.uploader.Upload(cmd.Context(), files)
	out := cmd.OutOrStdout()
	if flagJSON {
		if perr := printJSON(out, map[string]any{"urls": urls}); perr != nil {
			return perr
		}
	} else {
		for _, u := range urls {
			fmt.Fprintln(out, u)
		}
	}

	var batch *types.UploadBatchError
	if errors.As(err, &batch) {
		for _, fe := range batch.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", fe.Name, fe.Err)
		}
	}
	return err
}
