package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jobharvest/rod-jobs/internal/browser"
	"github.com/jobharvest/rod-jobs/internal/config"
	"github.com/jobharvest/rod-jobs/internal/crawl"
	"github.com/jobharvest/rod-jobs/internal/logger"
	"github.com/jobharvest/rod-jobs/internal/outputHandlers/files"
	"github.com/jobharvest/rod-jobs/internal/outputHandlers/sqlite"
)

var cfgFile string

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./config.yaml", "the path of the config file")
	rootCmd.Flags().StringP("search", "s", "", "The keyword to search for. Overrides the config file.")
	rootCmd.Flags().IntP("concurrency", "c", 0, "The number of browsers used for parsing job pages at the same time.")
	rootCmd.Flags().Bool("visualize", false, "Show the browsers instead of running them headless.")
	rootCmd.Flags().Int("max-pages", 0, "Stop after this many result pages. 0 walks every page.")

	cobra.CheckErr(viper.BindPFlag("search", rootCmd.Flags().Lookup("search")))
	cobra.CheckErr(viper.BindPFlag("n_process", rootCmd.Flags().Lookup("concurrency")))
	cobra.CheckErr(viper.BindPFlag("visualize", rootCmd.Flags().Lookup("visualize")))
	cobra.CheckErr(viper.BindPFlag("max_pages", rootCmd.Flags().Lookup("max-pages")))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())
	viper.SetConfigFile(cfgFile)
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// A missing file is fine as long as flags or env provide the keyword.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if !errors.Is(err, fs.ErrNotExist) {
		cobra.CheckErr(err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rod-jobs",
	Short: "Harvest job listings from a paginated job board",
	Long: "rod-jobs searches the job board for a keyword, walks every result page, parses each job " +
		"page in parallel browsers, retries failures once, filters the records and dumps them.",
	SilenceUsage: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Debug, cfg.LogFile)
		if err != nil {
			return err
		}
		defer log.Sync()

		return harvest(cmd.Context(), cfg, log)
	},
}

func harvest(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	runID := uuid.NewString()
	log = log.With(zap.String("run", runID))
	started := time.Now()

	spec, err := cfg.FilterSpec()
	if err != nil {
		return err
	}

	log.Info("setting browser", zap.Bool("visualize", cfg.Visualize))
	listing, err := browser.Launch(browser.Options{
		Visualize:  cfg.Visualize,
		Timeout:    cfg.Timeout,
		BlockMedia: cfg.BlockMedia,
	}, log.Named("listing"))
	if err != nil {
		return err
	}
	paginator := crawl.NewPaginator(listing, crawl.JobBank, cfg.MaxPages, log.Named("paginator"))

	sessions := browser.NewPool[crawl.Loader](func(worker int) (crawl.Loader, error) {
		s, err := browser.Launch(browser.Options{
			Visualize:  cfg.Visualize,
			Timeout:    cfg.Timeout,
			WarmupURL:  cfg.WarmupURL,
			BlockMedia: cfg.BlockMedia,
		}, log.Named("session").With(zap.Int("worker", worker)))
		if err != nil {
			return nil, err
		}
		log.Debug("session ready", zap.Int("worker", worker))
		return s, nil
	})
	defer sessions.Cleanup(func(worker int, l crawl.Loader) {
		if c, ok := l.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Warn("closing session", zap.Int("worker", worker), zap.Error(err))
			}
		}
	})

	extractor := crawl.NewExtractor(sessions, crawl.JobBank, crawl.DetailRules, log.Named("extract"))
	// The retry pass starts after every pool worker stopped, so it may borrow
	// their sessions, starting with the first one that is alive.
	retrier := crawl.NewRetrier(extractor, cfg.NProcess, log.Named("retry"))
	pipeline, err := crawl.NewPipeline(paginator, crawl.LinkExtractor{Site: crawl.JobBank}, extractor, retrier, cfg.NProcess, log)
	if err != nil {
		_ = paginator.Close()
		return err
	}

	out, err := pipeline.Run(ctx, cfg.Search, spec)
	if err != nil {
		return err
	}
	log.Info("log", zap.Any("summary", out.Log))

	dump := files.NewDump(cfg.OutputDir, cfg.Search, started)
	path, err := dump.WriteRecords(out.Records)
	if err != nil {
		return fmt.Errorf("dump records: %w", err)
	}
	log.Info("dumped crawling results", zap.String("path", path))

	if path, err = dump.WriteLog(out.Log); err != nil {
		return fmt.Errorf("dump log: %w", err)
	}
	log.Info("dumped log", zap.String("path", path))

	if used := viper.ConfigFileUsed(); used != "" {
		if _, statErr := os.Stat(used); statErr == nil {
			if path, err = dump.CopyConfig(used); err != nil {
				return fmt.Errorf("dump config: %w", err)
			}
			log.Info("dumped configuration file", zap.String("path", path))
		}
	}

	if cfg.Database == "" {
		return nil
	}
	db := sqlite.SqliteOutput{Database: cfg.Database, RunID: runID, Log: log.Named("sqlite")}
	if err := db.Init(); err != nil {
		return err
	}
	if err := db.Write(cfg.Search, started, out.Records, out.Dropped, out.Log); err != nil {
		_ = db.Cleanup()
		return err
	}
	if err := db.Cleanup(); err != nil {
		return err
	}
	log.Info("stored run", zap.String("database", cfg.Database))
	return nil
}
