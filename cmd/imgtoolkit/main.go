// Command imgtoolkit is a batch image and PDF processing tool. Files go in,
// processed artifacts land in the output directory, and outcomes are recorded
// in an optional Redis-backed activity ledger.
package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	toolkit "github.com/imagetoolkit/toolkit-go"
)

var (
	outputDir string
	redisAddr string
	namespace string
	verbose   bool
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "imgtoolkit",
		Short:         "Batch image and PDF processing toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&outputDir, "output", "o",
		getEnv("IMGTK_OUTPUT_DIR", "output"), "directory receiving processed files")
	root.PersistentFlags().StringVar(&redisAddr, "redis",
		getEnv("REDIS_ADDR", ""), "redis address enabling the activity ledger")
	root.PersistentFlags().StringVar(&namespace, "namespace",
		getEnv("IMGTK_NAMESPACE", "default"), "ledger key namespace")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newCompressCmd(),
		newResizeCmd(),
		newConvertCmd(),
		newPDFCompressCmd(),
		newPDFMergeCmd(),
		newPDFSplitCmd(),
		newImagesToPDFCmd(),
		newQRCmd(),
		newHistoryCmd(),
		newStatsCmd(),
	)
	return root
}

// app bundles the wired toolkit pieces for one command invocation.
type app struct {
	batch  *toolkit.Batch
	ledger *toolkit.Ledger
	log    toolkit.Logger
	zl     *zap.Logger
}

func newApp() (*app, error) {
	var zl *zap.Logger
	var err error
	if verbose {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := toolkit.NewZapLogger(zl)

	var ledger *toolkit.Ledger
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		ledger = toolkit.NewLedger(rdb,
			toolkit.WithNamespace(namespace),
			toolkit.WithLedgerLogger(log))
	}

	img := toolkit.NewImagingBackend(log)
	pdf := toolkit.NewPDFCPUBackend(log)
	queue := toolkit.NewQueue(toolkit.DefaultMux(img, pdf), toolkit.WithQueueLogger(log))
	batch := toolkit.NewBatch(queue,
		toolkit.WithBatchLogger(log),
		toolkit.WithLedger(ledger),
		toolkit.WithPDFBackend(pdf),
		toolkit.WithQRBackend(toolkit.NewQRCodeBackend(log)),
		toolkit.WithDownloader(&toolkit.DirDownloader{Dir: outputDir}),
		toolkit.WithProgress(func(current, total int, message string) {
			fmt.Printf("[%d/%d] %s\n", current, total, message)
		}),
	)
	return &app{batch: batch, ledger: ledger, log: log, zl: zl}, nil
}

func (a *app) close() { _ = a.zl.Sync() }

// loadFiles reads the given paths, deriving each file's MIME type from its
// extension and validating it against the accepted type set.
func loadFiles(paths []string) ([]*toolkit.File, error) {
	accepted := append(append([]string{}, toolkit.AcceptedImageTypes...), toolkit.AcceptedPDFTypes...)
	files := make([]*toolkit.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		mt := mime.TypeByExtension(filepath.Ext(p))
		if mt != "" {
			mt, _, _ = strings.Cut(mt, ";")
			mt = strings.TrimSpace(mt)
		}
		f := toolkit.NewFile(filepath.Base(p), mt, data)
		if err := toolkit.ValidateFile(f, accepted, toolkit.DefaultMaxFileSize); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func reportBatch(res *toolkit.BatchResult) {
	if res == nil {
		return
	}
	if len(res.Succeeded) > 0 || len(res.Failed) > 0 {
		fmt.Printf("processed: %d succeeded, %d failed\n", len(res.Succeeded), len(res.Failed))
		for _, it := range res.Failed {
			fmt.Printf("  failed: %s: %s\n", it.Input.Name, it.Err)
		}
	}
	if res.Filename != "" {
		fmt.Printf("wrote: %s\n", res.Filename)
	}
	if res.SpaceSaved > 0 {
		fmt.Printf("saved: %s\n", toolkit.FormatBytes(res.SpaceSaved))
	}
}

func runBatch(cmd *cobra.Command, args []string,
	run func(ctx context.Context, a *app, files []*toolkit.File) (*toolkit.BatchResult, error)) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	files, err := loadFiles(args)
	if err != nil {
		return err
	}
	res, err := run(cmd.Context(), a, files)
	if err != nil {
		return err
	}
	reportBatch(res)
	return nil
}

func newCompressCmd() *cobra.Command {
	var quality float64
	var format string
	cmd := &cobra.Command{
		Use:   "compress <file>...",
		Short: "Compress images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, func(ctx context.Context, a *app, files []*toolkit.File) (*toolkit.BatchResult, error) {
				return a.batch.ProcessFiles(ctx, toolkit.OpCompress, files,
					toolkit.CompressOptions{Quality: quality, Format: format})
			})
		},
	}
	cmd.Flags().Float64VarP(&quality, "quality", "q", 0.8, "encoding quality (0.1-1.0)")
	cmd.Flags().StringVarP(&format, "format", "f", "original", "output format (original, jpeg, png, ...)")
	return cmd
}

func newResizeCmd() *cobra.Command {
	var width, height int
	var stretch, fast bool
	cmd := &cobra.Command{
		Use:   "resize <file>...",
		Short: "Resize images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, func(ctx context.Context, a *app, files []*toolkit.File) (*toolkit.BatchResult, error) {
				return a.batch.ProcessFiles(ctx, toolkit.OpResize, files, toolkit.ResizeOptions{
					Width:               width,
					Height:              height,
					MaintainAspectRatio: !stretch,
					HighQuality:         !fast,
				})
			})
		},
	}
	cmd.Flags().IntVarP(&width, "width", "w", 800, "target width in pixels")
	cmd.Flags().IntVar(&height, "height", 600, "target height in pixels")
	cmd.Flags().BoolVar(&stretch, "stretch", false, "stretch to exact dimensions instead of fitting")
	cmd.Flags().BoolVar(&fast, "fast", false, "use the faster, lower quality resampling filter")
	return cmd
}

func newConvertCmd() *cobra.Command {
	var to string
	var quality float64
	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Convert images to another format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, func(ctx context.Context, a *app, files []*toolkit.File) (*toolkit.BatchResult, error) {
				return a.batch.ProcessFiles(ctx, toolkit.OpConvert, files,
					toolkit.ConvertOptions{TargetFormat: to, Quality: quality})
			})
		},
	}
	cmd.Flags().StringVarP(&to, "to", "t", "jpeg", "target format")
	cmd.Flags().Float64VarP(&quality, "quality", "q", 0.9, "encoding quality (0.1-1.0)")
	return cmd
}

func newPDFCompressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pdf-compress <file>...",
		Short: "Compress PDF documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, func(ctx context.Context, a *app, files []*toolkit.File) (*toolkit.BatchResult, error) {
				return a.batch.ProcessFiles(ctx, toolkit.OpPDFCompress, files, toolkit.PDFCompressOptions{})
			})
		},
	}
}

func newPDFMergeCmd() *cobra.Command {
	var name string
	var compress bool
	cmd := &cobra.Command{
		Use:   "pdf-merge <file>...",
		Short: "Merge PDF documents into one",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, func(ctx context.Context, a *app, files []*toolkit.File) (*toolkit.BatchResult, error) {
				return a.batch.MergePDFs(ctx, files, toolkit.PDFMergeOptions{
					OutputName:         name,
					CompressAfterMerge: compress,
				})
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "base name of the merged document")
	cmd.Flags().BoolVar(&compress, "compress", false, "compress the merged document")
	return cmd
}

func newPDFSplitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pdf-split <file>",
		Short: "Split a PDF into single-page documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, func(ctx context.Context, a *app, files []*toolkit.File) (*toolkit.BatchResult, error) {
				return a.batch.SplitPDF(ctx, files[0])
			})
		},
	}
}

func newImagesToPDFCmd() *cobra.Command {
	var pageSize string
	cmd := &cobra.Command{
		Use:   "images-to-pdf <file>...",
		Short: "Combine images into one PDF",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, func(ctx context.Context, a *app, files []*toolkit.File) (*toolkit.BatchResult, error) {
				return a.batch.ImagesToPDF(ctx, files, toolkit.ImagesToPDFOptions{PageSize: pageSize})
			})
		},
	}
	cmd.Flags().StringVar(&pageSize, "page-size", "A4", "page format (A4, Letter, Legal, A3)")
	return cmd
}

func newQRCmd() *cobra.Command {
	var size int
	var level, dark, light string
	var wifiSSID, wifiPass, wifiSec string
	cmd := &cobra.Command{
		Use:   "qr [text]",
		Short: "Generate a QR code PNG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 1 {
				text = args[0]
			}
			if wifiSSID != "" {
				text = toolkit.WiFiPayload(wifiSSID, wifiPass, wifiSec, false)
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			res, err := a.batch.GenerateQR(cmd.Context(), text, toolkit.QROptions{
				Size:            size,
				ErrorCorrection: level,
				DarkColor:       dark,
				LightColor:      light,
			})
			if err != nil {
				return err
			}
			reportBatch(res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&size, "size", "s", toolkit.DefaultQRSize, "edge length in pixels")
	cmd.Flags().StringVarP(&level, "level", "l", "M", "error correction level (L, M, Q, H)")
	cmd.Flags().StringVar(&dark, "dark", "#000000", "foreground color")
	cmd.Flags().StringVar(&light, "light", "#ffffff", "background color")
	cmd.Flags().StringVar(&wifiSSID, "wifi-ssid", "", "encode a WiFi network instead of plain text")
	cmd.Flags().StringVar(&wifiPass, "wifi-password", "", "WiFi password")
	cmd.Flags().StringVar(&wifiSec, "wifi-security", "WPA", "WiFi security (WPA, WEP, nopass)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			if a.ledger == nil {
				return fmt.Errorf("activity ledger disabled; set --redis or REDIS_ADDR")
			}
			activities, err := a.ledger.Activities(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(activities) == 0 {
				fmt.Println("no activity recorded")
				return nil
			}
			for _, act := range activities {
				fmt.Printf("%s  %-14s %s (%s)\n", act.Timestamp, act.Type, act.Title, act.Description)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of records to show")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cumulative processing counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			if a.ledger == nil {
				return fmt.Errorf("activity ledger disabled; set --redis or REDIS_ADDR")
			}
			stats, err := a.ledger.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("files processed: %d\n", stats.Processed)
			fmt.Printf("space saved:     %s\n", toolkit.FormatBytes(stats.SavedSpace))
			return nil
		},
	}
}
