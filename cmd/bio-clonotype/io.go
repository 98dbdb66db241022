package main

// This file defines the recordio formats read and written by bio-clonotype.
// The input holds one exactRecord per exact subclonotype, the output one
// orbitRecord per final orbit with the run's Opts and Stats in the trailer.

import (
	"bufio"
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/clonotype/clonotype"
)

const (
	// <fileVersionHeader, fileVersion> is stored in a recordio header.
	fileVersionHeader = "clonotypeversion"
	exactsVersion     = "EXACTS_V1"
	orbitsVersion     = "ORBITS_V1"
)

// unitRecord is one join unit of an exact subclonotype.
type unitRecord struct {
	// Cols are indexes into the subclonotype's chains.
	Cols      []int
	Germlines [][]byte
}

type exactRecord struct {
	Exact clonotype.ExactSubclonotype
	Units []unitRecord
}

type orbitRecord struct {
	Orbit  int
	Exacts []clonotype.ExactSubclonotype
}

// orbitFileTrailer is stored in the trailer section of the orbit file.
type orbitFileTrailer struct {
	Opts  clonotype.Opts
	Stats clonotype.Stats
}

func encodeGOB(v interface{}) []byte {
	b := bytes.NewBuffer(nil)
	if err := gob.NewEncoder(b).Encode(v); err != nil {
		log.Panic(err)
	}
	return b.Bytes()
}

func decodeGOB(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// rioWriter appends gob-encoded records to a zstd-compressed recordio file.
type rioWriter struct {
	path string
	out  file.File
	w    recordio.Writer
}

func newRIOWriter(ctx context.Context, path, version string) (*rioWriter, error) {
	recordiozstd.Init()
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	w := recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{
		Transformers: []string{recordiozstd.Name},
	})
	w.AddHeader(fileVersionHeader, version)
	w.AddHeader(recordio.KeyTrailer, true)
	return &rioWriter{path: path, out: out, w: w}, nil
}

func (w *rioWriter) Append(v interface{}) { w.w.Append(encodeGOB(v)) }

// Close writes the trailer and closes the file.  It must be called exactly
// once.
func (w *rioWriter) Close(ctx context.Context, trailer interface{}) error {
	w.w.SetTrailer(encodeGOB(trailer))
	err := errors.Once{}
	err.Set(w.w.Finish())
	err.Set(w.out.Close(ctx))
	if e := err.Err(); e != nil {
		return errors.E(e, "close", w.path)
	}
	return nil
}

// scanRIO calls fn with every record of a file written by rioWriter and
// returns its trailer.
func scanRIO(ctx context.Context, path, version string, fn func(data []byte) error) (trailer []byte, err error) {
	recordiozstd.Init()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	found := false
	for _, kv := range r.Header() {
		if kv.Key == fileVersionHeader {
			if v, _ := kv.Value.(string); v != version {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("%s has version %v, want %s", path, kv.Value, version))
			}
			found = true
			break
		}
	}
	if !found {
		return nil, errors.E(errors.Invalid, path+": "+fileVersionHeader+" not found")
	}
	for r.Scan() {
		if err := fn(r.Get().([]byte)); err != nil {
			return nil, errors.E(err, "read", path)
		}
	}
	if err := r.Err(); err != nil {
		return nil, errors.E(err, "read", path)
	}
	return r.Trailer(), nil
}

// writeExacts writes the input format of bio-clonotype.
func writeExacts(ctx context.Context, path string, exacts []exactRecord) error {
	w, err := newRIOWriter(ctx, path, exactsVersion)
	if err != nil {
		return err
	}
	for i := range exacts {
		w.Append(exacts[i])
	}
	return w.Close(ctx, len(exacts))
}

// readDataset reads a file written by writeExacts.
func readDataset(ctx context.Context, path string) (*clonotype.Dataset, error) {
	var (
		exacts []clonotype.ExactSubclonotype
		infos  []clonotype.CloneInfo
	)
	_, err := scanRIO(ctx, path, exactsVersion, func(data []byte) error {
		var rec exactRecord
		if err := decodeGOB(data, &rec); err != nil {
			return err
		}
		id := clonotype.SubclonotypeID(len(exacts))
		exacts = append(exacts, rec.Exact)
		for i, u := range rec.Units {
			if len(u.Cols) != len(u.Germlines) {
				return errors.E(errors.Invalid, fmt.Sprintf("subclonotype %d unit %d has %d chains and %d germlines",
					id, i, len(u.Cols), len(u.Germlines)))
			}
			for _, c := range u.Cols {
				if c < 0 || c >= len(rec.Exact.Chains) {
					return errors.E(errors.Invalid, fmt.Sprintf("subclonotype %d unit %d references chain %d", id, i, c))
				}
			}
			infos = append(infos, clonotype.NewCloneInfo(&rec.Exact, id, u.Cols, u.Germlines))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("%s: read %d exact subclonotypes, %d join units", path, len(exacts), len(infos))
	return clonotype.NewDataset(exacts, infos)
}

// writeOrbits writes the final orbits to path in recordio format.
func writeOrbits(ctx context.Context, path string, d *clonotype.Dataset, orbits []clonotype.Orbit, trailer orbitFileTrailer) error {
	w, err := newRIOWriter(ctx, path, orbitsVersion)
	if err != nil {
		return err
	}
	for i, o := range orbits {
		rec := orbitRecord{Orbit: i}
		for _, s := range orbitExacts(d, o) {
			rec.Exacts = append(rec.Exacts, d.Exacts[s])
		}
		w.Append(rec)
	}
	return w.Close(ctx, trailer)
}

// readOrbits reads a file written by writeOrbits.
func readOrbits(ctx context.Context, path string) ([]orbitRecord, orbitFileTrailer, error) {
	var (
		orbits  []orbitRecord
		trailer orbitFileTrailer
	)
	data, err := scanRIO(ctx, path, orbitsVersion, func(data []byte) error {
		var rec orbitRecord
		if err := decodeGOB(data, &rec); err != nil {
			return err
		}
		orbits = append(orbits, rec)
		return nil
	})
	if err == nil {
		err = decodeGOB(data, &trailer)
	}
	return orbits, trailer, err
}

func orbitExacts(d *clonotype.Dataset, o clonotype.Orbit) []clonotype.SubclonotypeID {
	seen := map[clonotype.SubclonotypeID]bool{}
	var ids []clonotype.SubclonotypeID
	for _, id := range o {
		s := d.Infos[id].Subclonotype
		if !seen[s] {
			seen[s] = true
			ids = append(ids, s)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// cellRow is one line of the orbit TSV.
type cellRow struct {
	Orbit   int64  `tsv:"orbit"`
	Exact   int64  `tsv:"exact"`
	Dataset int64  `tsv:"dataset"`
	Barcode string `tsv:"barcode"`
	Donor   int64  `tsv:"donor"`
	CDR3    string `tsv:"cdr3_aa"`
}

// fateRow is one line of the fate TSV.
type fateRow struct {
	Dataset int64  `tsv:"dataset"`
	Barcode string `tsv:"barcode"`
	Reason  string `tsv:"reason"`
}

func writeTSV(ctx context.Context, path string, fn func(w *tsv.RowWriter) error) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewRowWriter(out.Writer(ctx))
	if err = fn(w); err != nil {
		return errors.E(err, "write", path)
	}
	return w.Flush()
}

// writeOrbitTSV writes one line per cell of each orbit.
func writeOrbitTSV(ctx context.Context, path string, d *clonotype.Dataset, orbits []clonotype.Orbit) error {
	return writeTSV(ctx, path, func(w *tsv.RowWriter) error {
		for i, o := range orbits {
			for _, s := range orbitExacts(d, o) {
				ex := &d.Exacts[s]
				var cdr3 []string
				for _, c := range ex.Chains {
					cdr3 = append(cdr3, c.CDR3AA)
				}
				for _, c := range ex.Cells {
					row := cellRow{int64(i), int64(s), int64(c.Dataset), c.Barcode, int64(c.Donor), strings.Join(cdr3, ";")}
					if err := w.Write(&row); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// writeFateTSV writes the removed cells.
func writeFateTSV(ctx context.Context, path string, fate *clonotype.Fate) error {
	return writeTSV(ctx, path, func(w *tsv.RowWriter) error {
		for _, e := range fate.Entries() {
			row := fateRow{int64(e.Dataset), e.Barcode, e.Reason}
			if err := w.Write(&row); err != nil {
				return err
			}
		}
		return nil
	})
}

func openText(ctx context.Context, path string) (io.Reader, file.File, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "open", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u, _ := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	return r, in, nil
}

// readBarcodes reads a list of barcodes, one per line, and returns them
// sorted.
func readBarcodes(ctx context.Context, path string) (bcs []string, err error) {
	r, in, err := openText(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			bcs = append(bcs, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.E(err, "read", path)
	}
	sort.Strings(bcs)
	return bcs, nil
}

// readMetadata reads a tab-separated table whose header starts with
// "dataset" and "barcode".  The other columns become metadata fields.  Lines
// starting with '#' are skipped.
func readMetadata(ctx context.Context, path string) (meta *clonotype.Metadata, err error) {
	r, in, err := openText(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	tr := tsv.NewReader(r)
	tr.Comment = '#'
	header, err := tr.Reader.Read()
	if err != nil {
		return nil, errors.E(err, "read header", path)
	}
	// The embedded csv.Reader reuses its record buffer.
	header = append([]string(nil), header...)
	if len(header) < 2 || header[0] != "dataset" || header[1] != "barcode" {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: header must start with dataset, barcode; found %v", path, header))
	}
	meta = clonotype.NewMetadata()
	n := 0
	for {
		row, err := tr.Reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.E(err, "read", path)
		}
		dataset, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("%s:%d", path, n+2))
		}
		for i := 2; i < len(row); i++ {
			meta.Set(dataset, row[1], header[i], row[i])
		}
		n++
	}
	log.Printf("%s: read metadata for %d cells", path, n)
	return meta, nil
}
