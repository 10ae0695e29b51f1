package ingest

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/Clark-Hu/imdb-ratings/internal/domain"
)

// Column names in the IMDb title.ratings header.
const (
	ColumnID     = "tconst"
	ColumnRating = "averageRating"
	ColumnVotes  = "numVotes"
)

// Decoder streams accepted rows out of a gzip-compressed, tab-separated file.
type Decoder struct {
	path    string
	file    io.Closer
	gz      *gzip.Reader
	reader  *csv.Reader
	idIdx   int
	rateIdx int
	voteIdx int
	width   int
	skipped int
}

// OpenDecoder opens path and reads its header row.
func OpenDecoder(path string) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: errors.Wrap(err, "opening file")}
	}
	d, err := newDecoder(path, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	d.file = f
	return d, nil
}

// NewDecoder decodes an already open compressed stream. Closing the decoder
// does not close r.
func NewDecoder(r io.Reader) (*Decoder, error) {
	return newDecoder("<stream>", r)
}

func newDecoder(path string, r io.Reader) (*Decoder, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: errors.Wrap(err, "reading gzip header")}
	}

	reader := csv.NewReader(gz)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		_ = gz.Close()
		if err == io.EOF {
			err = errors.New("missing header row")
		}
		return nil, &DecodeError{Path: path, Err: errors.Wrap(err, "reading header")}
	}

	d := &Decoder{path: path, gz: gz, reader: reader, idIdx: -1, rateIdx: -1, voteIdx: -1}
	for i, name := range header {
		switch name {
		case ColumnID:
			d.idIdx = i
		case ColumnRating:
			d.rateIdx = i
		case ColumnVotes:
			d.voteIdx = i
		}
	}
	if d.idIdx < 0 || d.rateIdx < 0 || d.voteIdx < 0 {
		_ = gz.Close()
		return nil, &DecodeError{Path: path, Err: errors.Errorf("header %v lacks %s, %s or %s", header, ColumnID, ColumnRating, ColumnVotes)}
	}
	d.width = max(d.idIdx, d.rateIdx, d.voteIdx) + 1
	return d, nil
}

// Next returns the next accepted row, or io.EOF once the stream is exhausted.
// Rows with a missing, empty or unparseable field are skipped.
func (d *Decoder) Next() (domain.Rating, error) {
	for {
		record, err := d.reader.Read()
		if err == io.EOF {
			return domain.Rating{}, io.EOF
		}
		if err != nil {
			return domain.Rating{}, &DecodeError{Path: d.path, Err: errors.Wrap(err, "reading row")}
		}

		rating, ok := d.parse(record)
		if !ok {
			d.skipped++
			continue
		}
		return rating, nil
	}
}

func (d *Decoder) parse(record []string) (domain.Rating, bool) {
	if len(record) < d.width {
		return domain.Rating{}, false
	}
	id, rawRating, rawVotes := record[d.idIdx], record[d.rateIdx], record[d.voteIdx]
	if id == "" || rawRating == "" || rawVotes == "" || len(id) > domain.MaxIDLength {
		return domain.Rating{}, false
	}
	value, err := strconv.ParseFloat(rawRating, 64)
	if err != nil || math.IsNaN(value) || value < domain.MinRating || value > domain.MaxRating {
		return domain.Rating{}, false
	}
	// num_votes is an INTEGER column; a wider value would fail its whole batch.
	votes, err := strconv.ParseInt(rawVotes, 10, 32)
	if err != nil || votes < 0 {
		return domain.Rating{}, false
	}
	return domain.Rating{ID: id, Rating: value, Votes: votes}, true
}

// Skipped returns how many rows have been rejected so far.
func (d *Decoder) Skipped() int { return d.skipped }

func (d *Decoder) Close() error {
	err := d.gz.Close()
	if d.file != nil {
		if cerr := d.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
