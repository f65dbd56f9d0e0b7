package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cardistry-catalog/internal/domains/move/feed"
	moveModel "cardistry-catalog/internal/domains/move/model"
	"cardistry-catalog/pkg/client"
)

// how often `moves add` asks the server for upload progress
var pollInterval = 250 * time.Millisecond

var (
	listFilter   feed.Filter
	listJSON     bool
	exportFilter feed.Filter
	exportOut    string
	addForm      moveModel.MoveForm
	addImage     string
)

// movesCmd groups catalog commands
var movesCmd = &cobra.Command{
	Use:   "moves",
	Short: "Browse, submit and export moves",
	Long: `Work with the move catalog.

Available subcommands:
  list   - Show the filtered feed
  add    - Submit a new move, optionally with an image
  export - Download the filtered feed as an XLSX workbook`,
}

var movesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the filtered feed, newest first",
	RunE:  runMovesList,
}

var movesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Submit a new move",
	Long: `Submit a new move. When --image is set the file is uploaded first
and progress is printed to stderr; the move is only saved once the upload
has finished.`,
	RunE: runMovesAdd,
}

var movesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the filtered feed as XLSX",
	RunE:  runMovesExport,
}

func init() {
	addFilterFlags(movesListCmd, &listFilter)
	movesListCmd.Flags().BoolVar(&listJSON, "json", false, "Print the raw records as JSON")

	addFilterFlags(movesExportCmd, &exportFilter)
	movesExportCmd.Flags().StringVarP(&exportOut, "out", "o", "moves.xlsx", "Output file")

	f := movesAddCmd.Flags()
	f.StringVar(&addForm.Name, "name", "", "Move name (required)")
	f.StringVar(&addForm.Creator, "creator", "", "Creator (defaults to your display name)")
	f.StringVar(&addForm.Year, "year", "", "Year created")
	f.StringVar(&addForm.Difficulty, "difficulty", "", "Easy, Medium, Hard or Expert")
	f.StringVar(&addForm.Description, "description", "", "Short description")
	f.StringVar(&addForm.Tags, "tags", "", "Comma separated tags")
	f.StringVar(&addForm.Video, "video", "", "Tutorial or performance link")
	f.StringVar(&addImage, "image", "", "Path to an image file")

	movesCmd.AddCommand(movesListCmd, movesAddCmd, movesExportCmd)
}

func addFilterFlags(cmd *cobra.Command, f *feed.Filter) {
	cmd.Flags().StringVarP(&f.Query, "query", "q", "", "Free-text query over name, creator, year and tags")
	cmd.Flags().StringVar(&f.Year, "year", "", "Exact year")
	cmd.Flags().StringVar(&f.Difficulty, "difficulty", "", "Exact difficulty")
}

func runMovesList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	view, err := newClient().ListMoves(ctx, listFilter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view.Moves)
	}

	fmt.Fprintln(out, renderFeed(view))
	return nil
}

type createResult struct {
	rec *moveModel.MoveRecord
	err error
}

func runMovesAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	var image *client.Image
	if addImage != "" {
		file, err := os.Open(addImage)
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer file.Close()
		image = &client.Image{Filename: filepath.Base(addImage), Body: file}
	}

	c := newClient()
	uploadID := uuid.NewString()

	done := make(chan createResult, 1)
	go func() {
		rec, err := c.CreateMove(ctx, addForm, image, uploadID)
		done <- createResult{rec: rec, err: err}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastPercent := -1
	for {
		select {
		case res := <-done:
			if res.err != nil {
				return res.err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Added %s (%s)\n", okMark(), res.rec.Name, res.rec.ID)
			return nil

		case <-ticker.C:
			if image == nil {
				continue
			}
			// 404 until the server has started the upload
			p, err := c.UploadProgress(ctx, uploadID)
			if err != nil || p.Percent == lastPercent {
				continue
			}
			lastPercent = p.Percent
			fmt.Fprintln(cmd.ErrOrStderr(), renderProgress(p.Percent))
		}
	}
}

func runMovesExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	file, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOut, err)
	}

	if err := newClient().ExportMoves(ctx, exportFilter, file); err != nil {
		file.Close()
		os.Remove(exportOut)
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", exportOut, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", okMark(), exportOut)
	return nil
}
