package cli

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/t0m4t0ww/license-plate-recognition/internal/config"
	"github.com/t0m4t0ww/license-plate-recognition/internal/dto"
	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/model"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service/detector"
)

func newDetectCmd() *cobra.Command {
	var (
		outDir      string
		detectorURL string
	)

	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Recognize the plates in one image",
		Example: `  lprweb detect car.jpg
  lprweb detect car.jpg --out ./result`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if detectorURL != "" {
				cfg.DetectorURL = detectorURL
			}
			client := detector.NewClient(cfg, logger.NewConsoleLogger(cmd.ErrOrStderr()))

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			result, err := client.Detect(cmd.Context(), file, filepath.Base(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Text:       %s\n", result.Text)
			if c := dto.FormatConfidence(result.Confidence); c != "" {
				fmt.Fprintf(out, "Confidence: %s\n", c)
			}
			for i, g := range result.Gallery {
				fmt.Fprintf(out, "Plate %d:    %s\n", i+1, g.Text)
			}

			if outDir == "" {
				return nil
			}
			files, err := writeResult(outDir, result)
			for _, f := range files {
				fmt.Fprintf(out, "Wrote %s\n", f)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write the annotated image and plate crops to")
	cmd.Flags().StringVar(&detectorURL, "detector", "", "Detection service URL (default $DETECTOR_URL)")

	return cmd
}

// writeResult saves the annotated image and every gallery crop as JPEG files.
func writeResult(dir string, result *model.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var written []string
	save := func(name, encoded string) error {
		if encoded == "" {
			return nil
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("%s: invalid base64: %w", name, err)
		}
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := imaging.Save(img, path); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := save("annotated.jpg", result.AnnotatedImage); err != nil {
		return written, err
	}
	for i, g := range result.Gallery {
		if err := save(fmt.Sprintf("plate_%d.jpg", i+1), g.Image); err != nil {
			return written, err
		}
	}
	return written, nil
}
