package clonotype

// Thresholds that define the clonotyping result.  Changing any of them
// changes which cells end up together.
const (
	// A column of an orbit is weak if it has at most WeakChainMaxCells
	// cells and fewer than 1/WeakChainRatio of the orbit's cells.
	WeakChainMaxCells = 20
	WeakChainRatio    = 8
	// A onesie is disintegrated only if it holds fewer than
	// 1/OnesieCellFraction of all cells.
	OnesieCellFraction = 1000
	// With Opts.MergeOnesiesCtl, a onesie with fewer than
	// 1/MergeOnesieCellFraction of all cells is not merged.
	MergeOnesieCellFraction = 10000
	// ConsistencyMaxCells caps the cells sampled per dataset.
	ConsistencyMaxCells = 100
	// ConsistencyBaseline is the assumed VDJ/GEX agreement rate.
	ConsistencyBaseline = 0.7
	// ConsistencyMinP is the smallest acceptable binomial tail probability.
	ConsistencyMinP = 0.00002
	// A pure group is a doublet of two groups that each have at least
	// MinMultDoublet times its cells.
	MinMultDoublet = 5
	// A signature is deleted if the two-column signatures it overlaps have
	// more than SignatureMult times its cells.
	SignatureMult = 20
	// tcrMaxDiffs caps the tig mismatches of TCR join candidates.
	tcrMaxDiffs = 5
)

// Opts controls the pipeline.
type Opts struct {
	// IsBCR selects B cell receptor heuristics.  TCR joins require nearly
	// identical sequences.
	IsBCR bool `yaml:"is_bcr"`

	// MaxScore is the largest join score accepted.
	MaxScore float64 `yaml:"max_score"`
	// AutoShare is the number of shared mutations above which a join is
	// accepted regardless of score.
	AutoShare int `yaml:"auto_share"`
	// A pair is rejected if its CDR3 differences reach CDR3Mult times its
	// independent mutations.
	CDR3Mult float64 `yaml:"cdr3_mult"`
	// MultPow and CDR3NormalLen define the CDR3 score multiplier
	// MultPow^(CDR3NormalLen*diffs/len) per chain.
	MultPow       float64 `yaml:"mult_pow"`
	CDR3NormalLen int     `yaml:"cdr3_normal_len"`
	// OldMult uses the binomial CDR3 multiplier instead.
	OldMult bool `yaml:"old_mult"`
	// MaxDiffs caps the number of mismatches between candidate tigs.
	MaxDiffs int `yaml:"max_diffs"`
	// MaxDegradation is the largest allowed difference in mutation counts
	// when two units are compared against two different references.
	MaxDegradation int `yaml:"max_degradation"`
	// MixDonors allows joins and merges across donors.
	MixDonors bool `yaml:"mix_donors"`

	// Whitelist enables the whitelist contamination diagnostic.  It is
	// meaningful only for one cell per subclonotype and no other filters.
	Whitelist bool `yaml:"whitelist"`

	// WeakOnesies enables onesie disintegration.
	WeakOnesies bool `yaml:"weak_onesies"`
	// MergeOnesies enables onesie merging.
	MergeOnesies bool `yaml:"merge_onesies"`
	// MergeOnesiesCtl skips negligible onesies when merging.
	MergeOnesiesCtl bool `yaml:"merge_onesies_ctl"`
	// Doublet enables deletion of doublets.
	Doublet bool `yaml:"doublet"`
	// Signature enables deletion of subclonotypes with rare signatures.
	Signature bool `yaml:"signature"`
	// WeakChains enables deletion of weak chains.  Fate is recorded
	// regardless.
	WeakChains bool `yaml:"weak_chains"`

	// AllowInconsistent turns a failed consistency check into a warning.
	AllowInconsistent bool `yaml:"allow_inconsistent"`

	// Predicates are boolean expressions over cell metadata.  A cell must
	// satisfy all of them.
	Predicates []string `yaml:"predicates"`

	// Parallelism is the number of concurrent workers.  If <= 0, the
	// number of CPUs is used.
	Parallelism int `yaml:"parallelism"`
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	IsBCR:           true,
	MaxScore:        100000,
	AutoShare:       15,
	CDR3Mult:        5,
	MultPow:         80,
	CDR3NormalLen:   42,
	MaxDiffs:        1000000,
	MaxDegradation:  2,
	WeakOnesies:     true,
	MergeOnesies:    true,
	MergeOnesiesCtl: true,
	Doublet:         true,
	Signature:       true,
	WeakChains:      true,
}
