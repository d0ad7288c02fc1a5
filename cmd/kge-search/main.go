// Copyright 2020 gorse Project Authors
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
	"os"
	"os/signal"

	"github.com/gorse-io/kge/base/log"
	"github.com/gorse-io/kge/base/progress"
	"github.com/gorse-io/kge/cmd/version"
	"github.com/gorse-io/kge/config"
	"github.com/gorse-io/kge/dataset"
	"github.com/gorse-io/kge/search"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var searchCommand = &cobra.Command{
	Use:   "kge-search",
	Short: "Random search of knowledge graph embedding hyper-parameters.",
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		// setup logger
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debug)

		// Load config
		configPath, _ := cmd.PersistentFlags().GetString("config")
		log.Logger().Info("load config", zap.String("config", configPath))
		conf, err := config.LoadConfig(configPath, cmd.PersistentFlags())
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		searchConfig, err := conf.SearchConfig()
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}

		// Load data
		factory, err := dataset.NewTriplesFactory(conf.Data.Train, conf.Data.CreateInverseTriples)
		if err != nil {
			log.Logger().Fatal("failed to load training triples", zap.Error(err))
		}
		testTriples, err := dataset.LoadTriples(conf.Data.Test)
		if err != nil {
			log.Logger().Fatal("failed to load test triples", zap.Error(err))
		}

		// Search
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		tracer := progress.NewTracer("kge-search")
		ctx, span := tracer.Start(ctx, "kge-search", searchConfig.MaxIters)
		bar := progressbar.Default(int64(searchConfig.MaxIters), "random search")
		searcher := search.NewRandomSearch(conf.Jobs)
		searcher.OnTrial = func(_ search.Trial) {
			_ = bar.Add(1)
		}
		result, err := searcher.Optimize(ctx, &search.Input{
			Train:  factory,
			Test:   testTriples,
			Policy: conf.UnknownLabelPolicy(),
		}, searchConfig, conf.Device, conf.Seed)
		stop()
		if err != nil {
			span.Fail(err)
			log.Logger().Fatal("failed to search", zap.Error(err))
		}
		_ = bar.Finish()
		span.End()
		for _, p := range append(tracer.List(), span.Children()...) {
			log.Logger().Info("complete task", zap.String("task", p.Name),
				zap.String("status", string(p.Status)),
				zap.Duration("elapsed", p.FinishTime.Sub(p.StartTime)))
		}

		// Report
		if err = renderTrials(os.Stdout, result); err != nil {
			log.Logger().Fatal("failed to render trials", zap.Error(err))
		}
		if outputDir, _ := cmd.PersistentFlags().GetString("output"); outputDir != "" {
			if err = writeResult(outputDir, result); err != nil {
				log.Logger().Fatal("failed to write result", zap.Error(err))
			}
			log.Logger().Info("write best trial", zap.String("output", outputDir))
		}
	},
}

func init() {
	log.AddFlags(searchCommand.PersistentFlags())
	searchCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	searchCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	searchCommand.PersistentFlags().String("train", "", "training triples path (overrides data.train)")
	searchCommand.PersistentFlags().String("test", "", "test triples path (overrides data.test)")
	searchCommand.PersistentFlags().StringP("output", "o", "", "directory of the best trial and the mappings")
	searchCommand.PersistentFlags().BoolP("version", "v", false, "kge-search version")
}

func main() {
	if err := searchCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
