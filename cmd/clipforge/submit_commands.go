package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clipforge/internal/ledger"
	"clipforge/internal/pipeline"
	"clipforge/internal/storage"
)

func newSubmitClipCommand(ctx *commandContext) *cobra.Command {
	var title string
	var maxClips int
	var expectedMinutes float64

	cmd := &cobra.Command{
		Use:   "submit-clip <source>",
		Short: "Queue a clip-extraction job for a long-form video",
		Long: "Queue a clip-extraction job. The source may be a local video file, " +
			"which is uploaded to the asset store first, or an existing uploads/ key.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			sourceKey := args[0]
			if _, statErr := os.Stat(sourceKey); statErr == nil {
				assets, err := ctx.openStorage()
				if err != nil {
					return err
				}
				uploaded, err := uploadSource(cmd, assets, sourceKey)
				if err != nil {
					return err
				}
				sourceKey = uploaded
			} else if !strings.HasPrefix(sourceKey, storage.NamespaceUploads+"/") {
				return fmt.Errorf("source %q is neither a readable file nor an uploads/ key", sourceKey)
			}

			params := pipeline.ClipParams{
				SourceKey:       sourceKey,
				Title:           strings.TrimSpace(title),
				MaxClips:        maxClips,
				ExpectedMinutes: expectedMinutes,
			}
			job, err := createJob(cmd, store, ledger.KindClipExtraction, params)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued clip-extraction job %s\n", job.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title used when naming extracted clips")
	cmd.Flags().IntVar(&maxClips, "max-clips", 0, "Upper bound on extracted clips (0 uses the configured default)")
	cmd.Flags().Float64Var(&expectedMinutes, "expected-minutes", 0, "Expected processing minutes, used for stuck detection")
	return cmd
}

func newSubmitStoryCommand(ctx *commandContext) *cobra.Command {
	var voiceID string
	var maxScenes int
	var expectedMinutes float64

	cmd := &cobra.Command{
		Use:   "submit-story <topic>",
		Short: "Queue a synthetic-generation job for a narrated story video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(args[0])
			if topic == "" {
				return fmt.Errorf("topic must not be empty")
			}

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			params := pipeline.StoryParams{
				Topic:           topic,
				VoiceID:         strings.TrimSpace(voiceID),
				MaxScenes:       maxScenes,
				ExpectedMinutes: expectedMinutes,
			}
			job, err := createJob(cmd, store, ledger.KindStoryVideo, params)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued story job %s\n", job.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&voiceID, "voice", "", "Voice identifier passed to the speech synthesizer")
	cmd.Flags().IntVar(&maxScenes, "max-scenes", 0, "Upper bound on storyboard scenes (0 uses the configured default)")
	cmd.Flags().Float64Var(&expectedMinutes, "expected-minutes", 0, "Expected processing minutes, used for stuck detection")
	return cmd
}

func createJob(cmd *cobra.Command, store *ledger.Store, kind ledger.Kind, params any) (*ledger.Job, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode job parameters: %w", err)
	}
	return store.Create(cmd.Context(), kind, string(payload))
}

func uploadSource(cmd *cobra.Command, assets storage.Backend, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat source file: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.UploadKey(uuid.NewString(), filepath.Base(path))
	if err := assets.Put(cmd.Context(), key, f, info.Size(), contentType); err != nil {
		return "", fmt.Errorf("upload source: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s\n", filepath.Base(path), key)
	return key, nil
}
