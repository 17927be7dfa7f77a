package commands

import (
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question about a product image",
	Long: `Describe a product image, then answer a question about it using the
ingredient spreadsheet. The exchange is recorded in the history database.

Example:
  ingredia ask --image cream.jpg --question "Is this safe for sensitive skin?"`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	flags := askCmd.Flags()
	flags.StringP("image", "i", "", "JPG or PNG image of the product (required)")
	flags.StringP("question", "q", "", "question about the product (required)")
	flags.StringP("output", "o", "text", "output format: text, json, yaml")
	_ = askCmd.MarkFlagRequired("image")
	_ = askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, _ []string) error {
	imagePath, _ := cmd.Flags().GetString("image")
	question, _ := cmd.Flags().GetString("question")
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

	product, err := a.svc.UploadProduct(cmd.Context(), data, mimeType)
	if err != nil {
		return err
	}
	answer, err := a.svc.Ask(cmd.Context(), product.ID, question)
	if err != nil {
		return err
	}

	return writeResult(cmd.OutOrStdout(), format, result{
		Image:       imagePath,
		Provider:    product.Provider,
		Description: product.Description,
		Question:    answer.Question,
		Answer:      answer.Answer,
	})
}
