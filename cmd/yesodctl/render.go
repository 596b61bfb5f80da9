package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"yesod/internal/domain"
	"yesod/internal/notice"
)

var (
	renderIn   string
	renderOut  string
	renderDate string
	renderOrg  string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a notice from a JSON request",
	Long: `Reads the same JSON body POST /api/generate-pdf accepts and writes the PDF.
With --date the output is byte-for-byte reproducible.`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderIn, "in", "-", "request JSON file, - for stdin")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output PDF path; a directory gets the derived file name")
	renderCmd.Flags().StringVar(&renderDate, "date", "", "issue date as YYYY-MM-DD (default today)")
	renderCmd.Flags().StringVar(&renderOrg, "org", "", "firm name printed in the letterhead")
	_ = renderCmd.MarkFlagRequired("out")
}

func readRequest(path string, stdin io.Reader) (domain.NoticeRequest, error) {
	var req domain.NoticeRequest

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, err
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("decode %s: %w", path, err)
	}
	return req, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	req, err := readRequest(renderIn, cmd.InOrStdin())
	if err != nil {
		return err
	}

	opts := []notice.Option{notice.WithLetterhead(notice.LetterheadFor(renderOrg))}
	if renderDate != "" {
		issued, err := time.ParseInLocation("2006-01-02", renderDate, time.Local)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		opts = append(opts, notice.WithClock(func() time.Time { return issued }))
	}

	doc, err := notice.NewGenerator(opts...).Generate(req)
	if err != nil {
		return err
	}

	out := renderOut
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		out = filepath.Join(out, notice.Filename(req.DebtorName))
	}
	if err := os.WriteFile(out, doc.Data, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d page(s), %d bytes\n", out, doc.Pages, len(doc.Data))
	return nil
}
