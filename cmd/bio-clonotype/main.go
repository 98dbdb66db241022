package main

// bio-clonotype groups exact subclonotypes into clonotypes.
//
// Example:
//
//    bio-clonotype --input=exacts.rio --gex=sample1.gex.txt,sample2.gex.txt \
//      --metadata=cells.tsv --predicate='umi >= 3' --output=out/run1
//
// writes out/run1.orbits.tsv (one line per cell of each clonotype),
// out/run1.fate.tsv (the cells removed by filters and why) and
// out/run1.orbits.rio (the clonotypes, with the options and statistics of
// the run in the trailer).

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/clonotype/clonotype"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// Collection of options set via cmdline flags
type clonotypeFlags struct {
	inputPath    string
	outputPrefix string
	gexPaths     string
	vdjNames     string
	metadataPath string
	optsPath     string
	metricsPath  string
	predicates   stringList
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// registerOptFlags binds the command-line flags that override fields of o.
func registerOptFlags(fs *flag.FlagSet, o *clonotype.Opts) {
	fs.BoolVar(&o.IsBCR, "bcr", o.IsBCR, "Use B cell receptor heuristics. Set to false for T cells.")
	fs.Float64Var(&o.MaxScore, "max-score", o.MaxScore, "Largest join score accepted.")
	fs.IntVar(&o.AutoShare, "auto-share", o.AutoShare, "Accept a join with at least this many shared mutations regardless of score.")
	fs.Float64Var(&o.CDR3Mult, "cdr3-mult", o.CDR3Mult, "Reject a join if its CDR3 differences reach this multiple of its independent mutations.")
	fs.Float64Var(&o.MultPow, "mult-pow", o.MultPow, "Base of the CDR3 score multiplier.")
	fs.BoolVar(&o.OldMult, "old-mult", o.OldMult, "Use the binomial CDR3 score multiplier.")
	fs.IntVar(&o.MaxDiffs, "max-diffs", o.MaxDiffs, "Largest # of mismatches between join candidates.")
	fs.IntVar(&o.MaxDegradation, "max-degradation", o.MaxDegradation, "Largest mutation count difference between two references.")
	fs.BoolVar(&o.MixDonors, "mix-donors", o.MixDonors, "Allow clonotypes that span donors.")
	fs.BoolVar(&o.Whitelist, "whitelist", o.Whitelist, "Report the whitelist contamination rate.")
	fs.BoolVar(&o.WeakOnesies, "weak-onesies", o.WeakOnesies, "Split small single-chain subclonotypes into single cells.")
	fs.BoolVar(&o.MergeOnesies, "merge-onesies", o.MergeOnesies, "Merge single-chain subclonotypes into clonotypes.")
	fs.BoolVar(&o.MergeOnesiesCtl, "merge-onesies-ctl", o.MergeOnesiesCtl, "Do not merge negligible single-chain subclonotypes.")
	fs.BoolVar(&o.Doublet, "doublet", o.Doublet, "Delete subclonotypes that look like cell doublets.")
	fs.BoolVar(&o.Signature, "signature", o.Signature, "Delete subclonotypes whose chain signature is rare in their clonotype.")
	fs.BoolVar(&o.WeakChains, "weak-chains", o.WeakChains, "Delete subclonotypes with poorly supported chains.")
	fs.BoolVar(&o.AllowInconsistent, "allow-inconsistent", o.AllowInconsistent, "Warn instead of failing if VDJ and GEX cells disagree.")
	fs.IntVar(&o.Parallelism, "parallelism", o.Parallelism, "# of concurrent workers. If <= 0, use all CPUs.")
}

// loadOpts reads the YAML options file at path, if any, and then applies
// the option flags set on cmdline.  Predicates are appended to those of the
// file.
func loadOpts(ctx context.Context, path string, cmdline *flag.FlagSet, predicates []string) (clonotype.Opts, error) {
	opts := clonotype.DefaultOpts
	if path != "" {
		data, err := file.ReadFile(ctx, path)
		if err != nil {
			return opts, errors.E(err, "read", path)
		}
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return opts, errors.E(errors.Invalid, err, "parse", path)
		}
	}
	fs := flag.NewFlagSet("opts", flag.ContinueOnError)
	registerOptFlags(fs, &opts)
	var err error
	cmdline.Visit(func(f *flag.Flag) {
		if err == nil && fs.Lookup(f.Name) != nil {
			err = fs.Set(f.Name, f.Value.String())
		}
	})
	opts.Predicates = append(append([]string(nil), opts.Predicates...), predicates...)
	return opts, err
}

// readOrigins describes the n datasets of the input.  gexPaths and vdjNames
// are comma-separated lists indexed by dataset; empty entries are allowed.
func readOrigins(ctx context.Context, n int, inputPath, gexPaths, vdjNames string) ([]clonotype.Origin, error) {
	origins := make([]clonotype.Origin, n)
	for i := range origins {
		origins[i].VDJPath = fmt.Sprintf("%s:%d", inputPath, i)
	}
	if vdjNames != "" {
		names := strings.Split(vdjNames, ",")
		if len(names) > n {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%d VDJ names for %d datasets", len(names), n))
		}
		for i, name := range names {
			if name != "" {
				origins[i].VDJPath = name
			}
		}
	}
	if gexPaths == "" {
		return origins, nil
	}
	paths := strings.Split(gexPaths, ",")
	if len(paths) > n {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("%d GEX files for %d datasets", len(paths), n))
	}
	for i, path := range paths {
		if path == "" {
			continue
		}
		bcs, err := readBarcodes(ctx, path)
		if err != nil {
			return nil, err
		}
		origins[i].GEXPath = path
		origins[i].GEXCells = bcs
		log.Printf("%s: %d GEX cells", path, len(bcs))
	}
	return origins, nil
}

func numDatasets(d *clonotype.Dataset) int {
	n := 0
	for i := range d.Exacts {
		for _, c := range d.Exacts[i].Cells {
			if c.Dataset >= n {
				n = c.Dataset + 1
			}
		}
	}
	return n
}

// runClonotype reads the input, runs the pipeline and writes all outputs.
func runClonotype(ctx context.Context, flags clonotypeFlags, opts clonotype.Opts) (clonotype.Stats, error) {
	var stats clonotype.Stats
	d, err := readDataset(ctx, flags.inputPath)
	if err != nil {
		return stats, err
	}
	p := clonotype.Pipeline{
		Opts:     opts,
		Doublets: clonotype.FindDoublets,
		Metrics:  clonotype.NewMetrics(),
	}
	if p.Origins, err = readOrigins(ctx, numDatasets(d), flags.inputPath, flags.gexPaths, flags.vdjNames); err != nil {
		return stats, err
	}
	if flags.metadataPath != "" {
		if p.Metadata, err = readMetadata(ctx, flags.metadataPath); err != nil {
			return stats, err
		}
	}
	orbits, stats, err := p.Run(d)
	if err != nil {
		return stats, err
	}
	log.Printf("Stats: %+v", stats)

	prefix := flags.outputPrefix
	if err := writeOrbitTSV(ctx, prefix+".orbits.tsv", d, orbits); err != nil {
		return stats, err
	}
	if err := writeFateTSV(ctx, prefix+".fate.tsv", d.Fate); err != nil {
		return stats, err
	}
	if err := writeOrbits(ctx, prefix+".orbits.rio", d, orbits, orbitFileTrailer{Opts: opts, Stats: stats}); err != nil {
		return stats, err
	}
	if flags.metricsPath != "" {
		if err := prometheus.WriteToTextfile(flags.metricsPath, p.Metrics.Registry); err != nil {
			return stats, errors.E(err, "write", flags.metricsPath)
		}
	}
	log.Printf("Wrote %d clonotypes to %s.*", len(orbits), prefix)
	return stats, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `
bio-clonotype groups exact subclonotypes of B or T cells into clonotypes.

Usage:
  bio-clonotype --input=exacts.rio --output=prefix [flags]

The input is a recordio file of exact subclonotypes and their join units.
Options may be given in a YAML file (--opts); flags override the file.

Flags:`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flags := clonotypeFlags{}
	flag.StringVar(&flags.inputPath, "input", "", "Recordio file of exact subclonotypes.")
	flag.StringVar(&flags.outputPrefix, "output", "./clonotypes", "Prefix of the output files.")
	flag.StringVar(&flags.gexPaths, "gex", "", `Comma-separated list of GEX cell barcode files, one per dataset.
An empty entry means the dataset has no GEX data.`)
	flag.StringVar(&flags.vdjNames, "vdj-names", "", "Comma-separated list of dataset names used in messages.")
	flag.StringVar(&flags.metadataPath, "metadata", "", `TSV file of per-cell fields. The header must start with
"dataset" and "barcode"; the other columns can be used in --predicate.`)
	flag.StringVar(&flags.optsPath, "opts", "", "YAML file of pipeline options.")
	flag.StringVar(&flags.metricsPath, "metrics", "", "If set, write Prometheus metrics to this file.")
	flag.Var(&flags.predicates, "predicate", "Boolean expression over --metadata fields that every cell must satisfy. May be repeated.")
	// The values are applied by loadOpts.
	dummy := clonotype.DefaultOpts
	registerOptFlags(flag.CommandLine, &dummy)

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()
	if flags.inputPath == "" {
		log.Fatal("--input is required")
	}
	opts, err := loadOpts(ctx, flags.optsPath, flag.CommandLine, flags.predicates)
	if err != nil {
		log.Fatalf("options: %v", err)
	}
	if _, err := runClonotype(ctx, flags, opts); err != nil {
		log.Fatalf("bio-clonotype: %v", err)
	}
	log.Printf("All done")
}
