package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/labelguard/compliance-cli/internal/model"
)

var (
	checkURL      string
	checkImages   []string
	checkText     string
	checkTextFile string
	checkTitle    string
	checkCategory string
	checkStrict   bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check one listing for label compliance",
	Long:  "Runs the full compliance pipeline on a listing given as a marketplace URL or as local images and seller text, and prints the report as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		listing, err := buildListing(cmd)
		if err != nil {
			return err
		}
		if checkURL != "" {
			listing, err = env.Marketplace.Fetch(ctx, checkURL)
			if err != nil {
				return eris.Wrap(err, "fetch listing")
			}
			if checkCategory != "" {
				listing.Category = checkCategory
			}
		}

		report, err := env.Pipeline.Run(ctx, listing)
		if err != nil {
			return eris.Wrap(err, "compliance check")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return eris.Wrap(err, "encode report")
		}

		if checkStrict && report.Verdict != model.VerdictCompliant {
			return fmt.Errorf("verdict %s", report.Verdict)
		}
		return nil
	},
}

// buildListing assembles a listing from local flags. URL-based fetching
// overrides it in the command body.
func buildListing(cmd *cobra.Command) (model.ListingInput, error) {
	if checkURL == "" && len(checkImages) == 0 && checkText == "" && checkTextFile == "" {
		return model.ListingInput{}, eris.New("nothing to check: pass --url, --image, or --text")
	}

	listing := model.ListingInput{
		Title:      checkTitle,
		Category:   checkCategory,
		SellerText: checkText,
	}

	if checkTextFile != "" {
		data, err := os.ReadFile(checkTextFile)
		if err != nil {
			return model.ListingInput{}, eris.Wrap(err, "read text file")
		}
		listing.SellerText = string(data)
	}

	for i, path := range checkImages {
		data, err := os.ReadFile(path)
		if err != nil {
			return model.ListingInput{}, eris.Wrapf(err, "read image %s", path)
		}
		listing.Images = append(listing.Images, model.ImageBlob{
			ID:        fmt.Sprintf("img-%d-%s", i+1, filepath.Base(path)),
			SourceURL: path,
			Data:      data,
		})
	}

	zap.L().Info("listing assembled from flags",
		zap.Int("images", len(listing.Images)),
		zap.String("category", listing.Category),
	)
	return listing, nil
}

func init() {
	checkCmd.Flags().StringVar(&checkURL, "url", "", "marketplace listing URL to fetch and check")
	checkCmd.Flags().StringArrayVar(&checkImages, "image", nil, "listing image file (repeatable)")
	checkCmd.Flags().StringVar(&checkText, "text", "", "seller description text")
	checkCmd.Flags().StringVar(&checkTextFile, "text-file", "", "file with seller description text")
	checkCmd.Flags().StringVar(&checkTitle, "title", "", "listing title")
	checkCmd.Flags().StringVar(&checkCategory, "category", "", "listing category path (e.g. grocery/snacks)")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "exit non-zero unless the verdict is COMPLIANT")
	rootCmd.AddCommand(checkCmd)
}
