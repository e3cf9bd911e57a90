package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/storage"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	var namespace string
	var presign bool
	var presignTTL time.Duration

	cmd := &cobra.Command{
		Use:   "assets <jobID>",
		Short: "List a job's stored assets, optionally with download links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch namespace {
			case storage.NamespaceUploads, storage.NamespaceProcessing, storage.NamespaceResults:
			default:
				return fmt.Errorf("unknown namespace %q", namespace)
			}

			assets, err := ctx.openStorage()
			if err != nil {
				return err
			}

			prefix := namespace + "/" + args[0] + "/"
			listed, err := assets.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			if len(listed) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No assets under %s\n", prefix)
				return nil
			}

			columns := []column{
				{title: "Key", maxWidth: 64},
				{title: "Size", numeric: true},
				{title: "Modified"},
			}
			if presign {
				columns = append(columns, column{title: "URL", maxWidth: 96})
			}

			rows := make([][]string, 0, len(listed))
			for _, asset := range listed {
				row := []string{
					asset.Key,
					formatBytes(asset.SizeBytes),
					asset.LastModified.Local().Format(time.RFC3339),
				}
				if presign {
					url, err := assets.Presign(cmd.Context(), asset.Key, presignTTL)
					if err != nil {
						return err
					}
					row = append(row, url)
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(columns, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", storage.NamespaceResults, "Asset namespace (uploads, processing, results)")
	cmd.Flags().BoolVar(&presign, "presign", false, "Include a time-limited download URL per asset")
	cmd.Flags().DurationVar(&presignTTL, "presign-ttl", time.Hour, "Lifetime of presigned URLs")
	return cmd
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
