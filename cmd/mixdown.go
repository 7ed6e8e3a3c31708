package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"JamLoop/config"
	"JamLoop/core/mixdown"

	"github.com/spf13/cobra"
)

var (
	mixdownOut    string
	mixdownConcat bool
)

// fileFetcher resolves loop sources as local file paths.
type fileFetcher struct{}

func (fileFetcher) Fetch(_ context.Context, source string) ([]byte, error) {
	return os.ReadFile(source)
}

var mixdownCmd = &cobra.Command{
	Use:   "mixdown [audio files...]",
	Short: "Render local audio files into a single WAV",
	Long: `Render local audio files into a single WAV using the same pipeline the
server uses for room exports. Loops are overlaid by default; pass --concat to
lay them back to back instead.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		policy := mixdown.PolicyOverlay
		if mixdownConcat {
			policy = mixdown.PolicyConcat
		}
		engine := mixdown.NewEngineWithPolicy(
			fileFetcher{},
			mixdown.NewSniffDecoder(cfg.FFmpegPath),
			policy,
		)

		inputs := make([]mixdown.LoopInput, 0, len(args))
		for i, path := range args {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			input, err := mixdown.NewLoopInput(path, name, path, true, 1.0, i)
			if err != nil {
				log.Fatalf("Invalid input %s: %v", path, err)
			}
			inputs = append(inputs, input)
		}

		blob, err := engine.Render(context.Background(), inputs)
		if err != nil {
			log.Fatalf("Mixdown failed: %v", err)
		}

		if err := os.WriteFile(mixdownOut, blob.Data, 0644); err != nil {
			log.Fatalf("Failed to write %s: %v", mixdownOut, err)
		}
		fmt.Printf("Wrote %s: %d frames, %d Hz, %d channel(s), %d bytes\n",
			mixdownOut, blob.Frames, blob.SampleRate, blob.Channels, len(blob.Data))
	},
}

func init() {
	mixdownCmd.Flags().StringVarP(&mixdownOut, "out", "o", "mixdown.wav", "output WAV path")
	mixdownCmd.Flags().BoolVar(&mixdownConcat, "concat", false, "lay tracks back to back instead of overlaying")
	rootCmd.AddCommand(mixdownCmd)
}
