package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/justyntemme/softsynth/patches"
	"github.com/justyntemme/softsynth/pkg/dsp/analysis"
	"github.com/justyntemme/softsynth/pkg/framework/debug"
	"github.com/justyntemme/softsynth/pkg/output"
	"github.com/justyntemme/softsynth/pkg/patch"
	"github.com/justyntemme/softsynth/pkg/render"
)

const profileWindow = 256

func main() {
	os.Exit(run(os.Args))
}

// run executes the command line in args and returns the exit code, so
// deferred cleanup happens before the process exits.
func run(args []string) int {
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	play := flags.Bool("p", false, "Play the patches (default behaviour when no other output is defined).")
	wavOut := flags.Bool("w", false, "Render each patch to a .wav file.")
	rawOut := flags.Bool("r", false, "Render each patch to a .raw file of big-endian 16-bit samples.")
	stdout := flags.Bool("s", false, "Do not write files; write raw big-endian samples to standard output instead.")
	directory := flags.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, files are placed in the working directory.")
	seconds := flags.Float64("seconds", 0, "Override the render length of every patch, in seconds.")
	stats := flags.Bool("stats", false, "Print level and pitch statistics of each rendered patch.")
	verbose := flags.Bool("v", false, "Log debug messages.")
	logFile := flags.String("log", "", "Append log messages to this file instead of standard error.")
	profile := flags.Bool("profile", false, "Time every buffer and print a profile report per patch.")
	list := flags.Bool("list", false, "List the built-in demo patches.")
	jobs := flags.Int("j", 0, "Number of patches rendered in parallel (default GOMAXPROCS).")
	help := flags.Bool("h", false, "Show help.")
	flags.Usage = func() { printUsage(flags) }
	if err := flags.Parse(args[1:]); err != nil {
		return 2
	}

	if *help {
		flags.Usage()
		return 0
	}
	if *list {
		for _, name := range patches.Names() {
			fmt.Println(name)
		}
		return 0
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 0
	}

	if *logFile != "" {
		logger, closer, err := debug.NewFileLogger(*logFile, "softsynth", debug.DefaultFlags)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not open log file: %v\n", err)
			return 1
		}
		prev := debug.SetDefault(logger)
		defer func() {
			debug.SetDefault(prev)
			closer.Close()
		}()
	}
	if *verbose {
		debug.SetLevel(debug.LogLevelDebug)
	}
	if *stdout && term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "refusing to write raw audio to a terminal; redirect standard output")
		return 1
	}
	if !*rawOut && !*wavOut && !*stdout && !*stats {
		*play = true // with nothing else to output, just play
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	retval := 0
	var loaded []*built
	for _, param := range flags.Args() {
		p, err := loadPatch(param)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not load patch %v: %v\n", param, err)
			retval = 1
			continue
		}
		if *seconds > 0 {
			p.Seconds = *seconds
		}
		b, err := build(p, *profile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not build patch %v: %v\n", param, err)
			retval = 1
			continue
		}
		loaded = append(loaded, b)
	}

	if *rawOut || *wavOut || *stdout || *stats {
		if err := renderAll(ctx, loaded, *directory, *wavOut, *rawOut, *stdout, *stats, *jobs); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			retval = 1
		}
		// rendering consumed the chains; playing needs fresh ones
		if *play {
			for i, b := range loaded {
				var err error
				if loaded[i], err = build(b.patch, *profile); err != nil {
					fmt.Fprintf(os.Stderr, "could not build patch %v: %v\n", b.inst.Name, err)
					retval = 1
				}
			}
		}
	}
	if *play {
		for _, b := range loaded {
			if b == nil {
				continue
			}
			if err := playPatch(ctx, b); err != nil {
				fmt.Fprintf(os.Stderr, "could not play patch %v: %v\n", b.inst.Name, err)
				retval = 1
			}
			if ctx.Err() != nil {
				break
			}
		}
	}
	if *profile {
		for _, b := range loaded {
			if b != nil && b.profiler != nil {
				fmt.Fprintf(os.Stderr, "%s:\n%s", b.inst.Name, b.profiler.Report())
			}
		}
	}
	return retval
}

type built struct {
	patch    *patch.Patch
	inst     *patch.Instrument
	profiler *debug.RenderProfiler
}

func build(p *patch.Patch, profile bool) (*built, error) {
	var opts []patch.Option
	var profiler *debug.RenderProfiler
	if profile {
		cfg, err := p.Config()
		if err != nil {
			return nil, err
		}
		profiler = debug.NewRenderProfiler(cfg.BufferDuration(), profileWindow)
		opts = append(opts, patch.WithProfiler(profiler))
	}
	inst, err := p.Build(opts...)
	if err != nil {
		return nil, err
	}
	return &built{patch: p, inst: inst, profiler: profiler}, nil
}

// loadPatch reads a patch file, falling back to the demo of that name.
func loadPatch(param string) (*patch.Patch, error) {
	if _, err := os.Stat(param); err == nil {
		return patch.Load(param)
	}
	data, err := patches.Read(param)
	if err != nil {
		return nil, fmt.Errorf("no such file or demo patch")
	}
	p, err := patch.Parse(data)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(param, filepath.Ext(param))
	}
	return p, nil
}

func renderAll(ctx context.Context, loaded []*built, dir string, wavOut, rawOut, stdout, stats bool, limit int) error {
	if dir == "" && !stdout && (wavOut || rawOut) {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
		}
	}
	if dir != "" && !stdout {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %v", dir, err)
		}
	}

	var jobs []render.Job
	for _, b := range loaded {
		job := render.Job{
			Name:    b.inst.Name,
			Source:  b.inst,
			Config:  b.inst.Config,
			Buffers: b.inst.Buffers(),
		}
		switch {
		case stdout:
		case wavOut:
			job.Path = filepath.Join(dir, b.inst.Name+render.FormatWAV.Ext())
		case rawOut:
			job.Format = render.FormatRaw
			job.Path = filepath.Join(dir, b.inst.Name+render.FormatRaw.Ext())
		}
		jobs = append(jobs, job)
	}

	results, err := render.RenderAll(ctx, jobs, limit)
	if err != nil {
		return err
	}

	for i, r := range results {
		// -w -r writes both formats from the same render
		if wavOut && rawOut && !stdout {
			path := filepath.Join(dir, r.Name+render.FormatRaw.Ext())
			if err := writeRaw(path, r.Samples); err != nil {
				return fmt.Errorf("could not write file %v: %v", path, err)
			}
		}
		if stdout {
			if err := render.WriteRaw(os.Stdout, r.Samples); err != nil {
				return fmt.Errorf("could not write to standard output: %v", err)
			}
		}
		if stats {
			printStats(r, jobs[i])
		}
	}
	return nil
}

func writeRaw(path string, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = render.WriteRaw(f, samples)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func printStats(r render.Result, job render.Job) {
	report := analysis.Check(r.Samples)
	fmt.Fprintf(os.Stderr, "%s: %v in %v\n", r.Name, report, r.Elapsed)
	if hz, err := analysis.PeakFrequency(r.Samples, job.Config); err == nil {
		fmt.Fprintf(os.Stderr, "%s: peak frequency %.1f Hz\n", r.Name, hz)
	}
}

func playPatch(ctx context.Context, b *built) error {
	p, err := output.NewPlayer(b.inst.Config, b.inst)
	if err != nil {
		return err
	}
	defer p.Close()

	p.SetLimit(b.inst.Buffers())
	p.Start()
	debug.Info("playing %q", b.inst.Name)
	return p.Wait(ctx)
}

func printUsage(flags *flag.FlagSet) {
	fmt.Fprintf(flags.Output(), "Softsynth command line utility for playing and rendering .yml instrument patches.\nUsage: %s [flags] [patch ...]\n\nA patch is a file path or the name of a built-in demo (see -list).\n\n", flags.Name())
	flags.PrintDefaults()
}
