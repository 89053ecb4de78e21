package main

import (
	"fmt"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/tarstars/lut_boosting/golang/lut_boost/gstore"
	"github.com/tarstars/lut_boosting/golang/lut_boost/lbl"
	"go.uber.org/zap"
	"os"
	"runtime"
	"runtime/pprof"
	"sort"
	"time"
)

var logger = zap.NewNop()

var modes = map[string]func(string) error{
	"predict":     predict,
	"train_lut":   trainLUT,
	"train_stump": trainStump,
	"loss":        loss,
	"line_search": lineSearch,
	"indices":     indices,
	"graph":       graph,
	"describe":    describe,
}

func modeNames() []string {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

//HandleError stops the program on any error.
func HandleError(err error) {
	if err != nil {
		logger.Fatal("lut_boost_main failed", zap.Error(err))
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runMode(mode, srcConfig string) error {
	run, ok := modes[mode]
	if !ok {
		return errors.Errorf("unknown mode %q, known modes are %v", mode, modeNames())
	}

	start := time.Now()
	logger.Info("mode started", zap.String("mode", mode), zap.String("config", srcConfig))
	if err := run(srcConfig); err != nil {
		return errors.WithMessagef(err, "mode %s", mode)
	}
	logger.Info("mode finished", zap.String("mode", mode), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func writeMemProfile(fileName string) (err error) {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	runtime.GC()
	return errors.Wrap(pprof.WriteHeapProfile(f), "could not write memory profile")
}

func main() {
	options, err := parseOptions(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err = newLogger(options.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	lbl.SetLogger(logger)
	gstore.SetLogger(logger)

	HandleError(runMode(options.Mode, options.Config))

	if options.MemProfile != "" {
		HandleError(writeMemProfile(options.MemProfile))
	}
}
