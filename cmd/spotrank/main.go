// Copyright 2024 SpotRank Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spotrank-io/spotrank/base/log"
	"github.com/spotrank-io/spotrank/cmd/version"
	"github.com/spotrank-io/spotrank/config"
	"github.com/spotrank-io/spotrank/logics"
	"github.com/spotrank-io/spotrank/storage/data"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "spotrank",
	Short: "Batch jobs for the SpotRank business recommendation engine.",
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		_ = cmd.Help()
	},
}

var similarityCommand = &cobra.Command{
	Use:   "similarity",
	Short: "Recalculate pairwise business similarities.",
	Run: func(cmd *cobra.Command, args []string) {
		conf, databaseClient := setup(cmd)
		defer databaseClient.Close()
		ctx := context.Background()

		var businessIds []string
		if categoryId, _ := cmd.Flags().GetString("category"); categoryId != "" {
			businesses, err := databaseClient.GetBusinessesByCategory(ctx, categoryId, conf.Recommend.CandidateLimit)
			if err != nil {
				log.Logger().Fatal("failed to load category businesses", zap.Error(err))
			}
			businessIds = lo.Map(businesses, func(b data.Business, _ int) string {
				return b.BusinessId
			})
		}
		force, _ := cmd.Flags().GetBool("force")

		updater := logics.NewSimilarityUpdater(conf, databaseClient)
		var bar *progressbar.ProgressBar
		stats, err := updater.Recalculate(ctx, businessIds, force, func(total, done int) {
			if bar == nil {
				bar = progressbar.Default(int64(total), "Scoring pairs")
			}
			_ = bar.Set(done)
		})
		if err != nil {
			log.Logger().Fatal("failed to recalculate similarities", zap.Error(err))
		}
		log.Logger().Info("similarity recalculation complete",
			zap.Int("processed", stats.Processed),
			zap.Int("updated", stats.Updated))
	},
}

var trendingCommand = &cobra.Command{
	Use:   "trending",
	Short: "Recompute trending scores for a period.",
	Run: func(cmd *cobra.Command, args []string) {
		conf, databaseClient := setup(cmd)
		defer databaseClient.Close()
		ctx := context.Background()

		period, _ := cmd.Flags().GetString("period")
		date := time.Now()
		if rawDate, _ := cmd.Flags().GetString("date"); rawDate != "" {
			var err error
			date, err = time.Parse("2006-01-02", rawDate)
			if err != nil {
				log.Logger().Fatal("invalid date", zap.String("date", rawDate), zap.Error(err))
			}
		}

		calculator := logics.NewTrendingCalculator(conf, databaseClient)
		itemType, _ := cmd.Flags().GetString("type")
		var stats logics.BatchStats
		var err error
		if itemType == "all" {
			stats, err = calculator.CalculateAll(ctx, period, date)
		} else {
			stats, err = calculator.Calculate(ctx, itemType, period, date)
		}
		if err != nil {
			log.Logger().Fatal("failed to calculate trending", zap.Error(err))
		}
		log.Logger().Info("trending calculation complete",
			zap.String("period", period),
			zap.String("type", itemType),
			zap.Int("processed", stats.Processed),
			zap.Int("updated", stats.Updated))
	},
}

// setup loads the configuration, configures logging and opens the data
// storage with migrations applied.
func setup(cmd *cobra.Command) (*config.Config, data.Database) {
	debug, _ := cmd.Root().PersistentFlags().GetBool("debug")
	log.SetLogger(cmd.Root().PersistentFlags(), debug)

	var conf *config.Config
	var err error
	if configPath, _ := cmd.Root().PersistentFlags().GetString("config"); configPath != "" {
		log.Logger().Info("load config", zap.String("config", configPath))
		conf, err = config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
	} else {
		conf = config.GetDefaultConfig()
	}

	databaseClient, err := openData(conf)
	if err != nil {
		log.Logger().Fatal("failed to open data storage",
			zap.String("data_store", log.RedactDBURL(conf.Database.DataStore)),
			zap.Error(err))
	}
	return conf, databaseClient
}

func openData(conf *config.Config) (data.Database, error) {
	databaseClient, err := data.Open(conf.Database.DataStore, conf.Database.TablePrefix)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = databaseClient.Init(); err != nil {
		return nil, errors.Trace(err)
	}
	return databaseClient, nil
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().BoolP("version", "v", false, "spotrank version")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")

	similarityCommand.Flags().String("category", "", "limit recalculation to one category")
	similarityCommand.Flags().Bool("force", false, "rescore pairs that already have a stored similarity")
	rootCommand.AddCommand(similarityCommand)

	trendingCommand.Flags().String("period", "daily", "period to aggregate (daily, weekly or monthly)")
	trendingCommand.Flags().String("date", "", "date inside the period (YYYY-MM-DD, default today)")
	trendingCommand.Flags().String("type", "all", "item type (business, category, search_term, offering or all)")
	rootCommand.AddCommand(trendingCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
