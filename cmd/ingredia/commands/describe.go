package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vbonduro/ingredia/internal/web"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Describe a product image",
	Long: `Send a product image to the model and print its description.

Example:
  ingredia describe --image cream.jpg`,
	RunE: runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)

	flags := describeCmd.Flags()
	flags.StringP("image", "i", "", "JPG or PNG image of the product (required)")
	flags.StringP("output", "o", "text", "output format: text, json, yaml")
	_ = describeCmd.MarkFlagRequired("image")
}

func runDescribe(cmd *cobra.Command, _ []string) error {
	imagePath, _ := cmd.Flags().GetString("image")
	format, _ := cmd.Flags().GetString("output")
	if err := checkFormat(format); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, mimeType, err := readImage(imagePath, cfg.MaxImageBytes)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	description, err := a.svc.DescribeImage(cmd.Context(), data, mimeType)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), format, result{
		Image:       imagePath,
		Provider:    cfg.ModelBackend,
		Description: description,
	})
}

// readImage loads an image file and checks its size and type the same way
// the upload handler does.
func readImage(path string, maxBytes int64) ([]byte, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if info.Size() > maxBytes {
		return nil, "", fmt.Errorf("image %s is %d bytes, limit is %d", path, info.Size(), maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	mimeType, ok := web.AllowedImageMIME(data)
	if !ok {
		return nil, "", fmt.Errorf("image %s is not a JPG or PNG", path)
	}
	return data, mimeType, nil
}
